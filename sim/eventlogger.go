package sim

import (
	"log"
)

// EventLogger is a hook that prints every event the bus dispatches.
type EventLogger struct {
	Logger *log.Logger
}

// NewEventLogger returns a hook that writes dispatched events into the
// logger. Attach it to a bus with AcceptHook.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeDispatch {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	h.Logger.Printf("%s %s [%s] from %s",
		evt.Timestamp.Format("15:04:05.000"), evt.Type, evt.Priority,
		evt.SourceID)
}
