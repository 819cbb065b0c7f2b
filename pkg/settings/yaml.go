package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v4"
	"gopkg.in/yaml.v3"
)

// Keys used in the YAML representation of a PlanConfig. All keys are nested
// under YAMLRootKey.
const (
	YAMLRootKey      = "allure"
	YAMLEnabled      = "enabled"
	YAMLFailedOnly   = "failed-only"
	YAMLExecutable   = "executable"
	YAMLArtifactName = "artifact-name"
)

// ErrNotMapping is returned when a YAML document or the root key value is not
// a YAML map.
var ErrNotMapping = errors.New("expected a YAML map")

// ImportYAML reads a plan configuration from a YAML document, e.g:
//
//	allure:
//	  enabled: true
//	  failed-only: false
//	  executable: allure-2.7.0
//	  artifact-name: allure-results
//
// Absent or blank values are filled in: enabled from the global default,
// failed-only as true, executable from the global default executable, and
// artifact-name as empty.
//
// The boolean return value is false if the document has no root key, in
// which case the plan has no report settings at all.
func ImportYAML(data []byte, global Global) (PlanConfig, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return PlanConfig{}, false, err
	}
	if len(doc.Content) == 0 {
		return PlanConfig{}, false, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return PlanConfig{}, false, ErrNotMapping
	}
	node, ok := mapValue(root, YAMLRootKey)
	if !ok {
		return PlanConfig{}, false, nil
	}
	if node.Kind != yaml.MappingNode {
		return PlanConfig{}, false, fmt.Errorf("%s: %w", YAMLRootKey, ErrNotMapping)
	}

	var cfg PlanConfig
	enabled := boolValue(node, YAMLEnabled)
	if enabled.Valid {
		cfg.Enabled = enabled
	} else {
		cfg.Enabled = null.BoolFrom(global.EnabledByDefault)
	}

	failedOnly := boolValue(node, YAMLFailedOnly)
	if failedOnly.Valid {
		cfg.FailedOnly = failedOnly
	} else {
		cfg.FailedOnly = null.BoolFrom(DefaultFailedOnly)
	}

	if exe := stringValue(node, YAMLExecutable); exe != "" {
		cfg.Executable = exe
	} else {
		cfg.Executable = global.DefaultExecutable
	}
	cfg.ArtifactName = stringValue(node, YAMLArtifactName)
	return cfg, true, nil
}

// ExportYAML writes the plan configuration as a YAML document nested under
// YAMLRootKey. Unset booleans are left out, and so is a blank artifact name.
func ExportYAML(cfg PlanConfig) ([]byte, error) {
	var node yaml.Node
	node.Kind = yaml.MappingNode
	if cfg.Enabled.Valid {
		appendPair(&node, YAMLEnabled, strconv.FormatBool(cfg.Enabled.Bool), "!!bool")
	}
	if cfg.FailedOnly.Valid {
		appendPair(&node, YAMLFailedOnly, strconv.FormatBool(cfg.FailedOnly.Bool), "!!bool")
	}
	appendPair(&node, YAMLExecutable, cfg.Executable, "!!str")
	if strings.TrimSpace(cfg.ArtifactName) != "" {
		appendPair(&node, YAMLArtifactName, cfg.ArtifactName, "!!str")
	}
	var root yaml.Node
	root.Kind = yaml.MappingNode
	root.Content = []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: YAMLRootKey},
		&node,
	}
	return yaml.Marshal(&root)
}

func appendPair(node *yaml.Node, key, value, tag string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

func mapValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}
	return nil, false
}

func stringValue(node *yaml.Node, key string) string {
	value, ok := mapValue(node, key)
	if !ok || value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(value.Value)
}

// boolValue reads "true" in any case as true and any other non-blank value
// as false, so "enabled: nope" disables rather than fails the import.
func boolValue(node *yaml.Node, key string) null.Bool {
	str := stringValue(node, key)
	if str == "" {
		return null.Bool{}
	}
	return null.BoolFrom(strings.EqualFold(str, "true"))
}
