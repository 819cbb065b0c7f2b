package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig
	assert.NoError(t, cfg.validate())
}

func TestValidateNormalizesHistoryKinds(t *testing.T) {
	testCases := []struct {
		name       string
		index      HistoryIndex
		source     HistorySource
		wantIndex  HistoryIndex
		wantSource HistorySource
		wantOK     bool
	}{
		{
			name:       "lowercase",
			index:      "store",
			source:     "http",
			wantIndex:  HistoryIndexStore,
			wantSource: HistorySourceHTTP,
			wantOK:     true,
		},
		{
			name:       "mixed case",
			index:      "WharfAPI",
			source:     "Store",
			wantIndex:  HistoryIndexWharfAPI,
			wantSource: HistorySourceStore,
			wantOK:     true,
		},
		{
			name:       "dashed wharf-api",
			index:      "wharf-api",
			source:     "store",
			wantIndex:  HistoryIndexWharfAPI,
			wantSource: HistorySourceStore,
			wantOK:     true,
		},
		{
			name:       "bad index",
			index:      "bamboo",
			source:     "store",
			wantIndex:  "bamboo",
			wantSource: "store",
			wantOK:     false,
		},
		{
			name:       "empty source",
			index:      "store",
			source:     "",
			wantIndex:  HistoryIndexStore,
			wantSource: "",
			wantOK:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig
			cfg.History.Index = tc.index
			cfg.History.Source = tc.source
			err := cfg.validate()
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tc.wantIndex, cfg.History.Index)
			assert.Equal(t, tc.wantSource, cfg.History.Source)
		})
	}
}

func TestValidateDefaultExecutableMustBeKnown(t *testing.T) {
	cfg := DefaultConfig
	cfg.Allure.Executables = map[string]string{"allure-2.7.0": "/opt/allure-2.7.0"}
	cfg.Allure.DefaultExecutable = "allure-2.13.0"
	assert.Error(t, cfg.validate())

	cfg.Allure.DefaultExecutable = ""
	assert.NoError(t, cfg.validate())
}

func TestAllureConfigGlobalSettings(t *testing.T) {
	global := AllureConfig{EnabledByDefault: true, DefaultExecutable: "allure"}.GlobalSettings()
	assert.True(t, global.EnabledByDefault)
	assert.Equal(t, "allure", global.DefaultExecutable)
}
