package vm

import (
	"github.com/rs/zerolog"

	"github.com/zephyr-lang/zephyr/object"
	"github.com/zephyr-lang/zephyr/op"
)

// Observer receives execution events from a Machine. Callbacks run on the
// machine's goroutine and must not retain the values they are passed.
type Observer interface {
	// OnCall fires when a function activation begins.
	OnCall(fn *object.Callable, depth int)
	// OnReturn fires when an activation completes, normally or not.
	OnReturn(fn *object.Callable, value object.Value, err error)
	// OnInstruction fires before each instruction is executed.
	OnInstruction(unitName string, offset int, code op.Code)
}

// TraceObserver logs every event through a zerolog logger at trace level.
// It is meant for debugging compiled units, not production use.
type TraceObserver struct {
	logger zerolog.Logger
}

// NewTraceObserver creates an observer that writes to the given logger.
func NewTraceObserver(logger zerolog.Logger) *TraceObserver {
	return &TraceObserver{logger: logger}
}

func (t *TraceObserver) OnCall(fn *object.Callable, depth int) {
	t.logger.Trace().
		Str("function", fn.Name()).
		Int("depth", depth).
		Msg("call")
}

func (t *TraceObserver) OnReturn(fn *object.Callable, value object.Value, err error) {
	evt := t.logger.Trace().Str("function", fn.Name())
	if err != nil {
		evt.Err(err).Msg("return with error")
		return
	}
	evt.Str("value", value.Inspect()).Msg("return")
}

func (t *TraceObserver) OnInstruction(unitName string, offset int, code op.Code) {
	t.logger.Trace().
		Str("unit", unitName).
		Int("offset", offset).
		Str("op", op.GetInfo(code).Name).
		Msg("execute")
}
