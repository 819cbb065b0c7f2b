package outcome

import (
	"context"
	"errors"
	"strconv"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
)

// Keys used when storing an outcome in a build's custom data.
const (
	KeySuccess = "allure.build.result.success"
	KeyMessage = "allure.build.result.message"
)

// ErrNilSink is returned when recording into a nil sink.
var ErrNilSink = errors.New("custom data sink is nil")

// Outcome is the result of one report generation run.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Success returns a successful outcome.
func Success(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

// Failure returns a failed outcome.
func Failure(message string) Outcome {
	return Outcome{Success: false, Message: message}
}

// CustomData returns the outcome encoded as custom build data.
func (o Outcome) CustomData() map[string]string {
	return map[string]string{
		KeySuccess: strconv.FormatBool(o.Success),
		KeyMessage: o.Message,
	}
}

// Sink is where a build's custom data is persisted. Values are merged into
// the existing custom data, overwriting keys that already exist.
type Sink interface {
	PutCustomData(ctx context.Context, ref buildref.Ref, values map[string]string) error
}

// Record writes the outcome into the build's custom data. Any previously
// recorded outcome for the same build is overwritten.
func Record(ctx context.Context, sink Sink, ref buildref.Ref, o Outcome) error {
	if sink == nil {
		return ErrNilSink
	}
	return sink.PutCustomData(ctx, ref, o.CustomData())
}

// Read decodes an outcome from custom build data. The boolean is false if no
// outcome has been recorded.
func Read(data map[string]string) (Outcome, bool) {
	successStr, ok := data[KeySuccess]
	if !ok {
		return Outcome{}, false
	}
	success, err := strconv.ParseBool(successStr)
	if err != nil {
		return Outcome{}, false
	}
	return Outcome{
		Success: success,
		Message: data[KeyMessage],
	}, true
}
