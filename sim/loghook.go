package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// A LogHook is a hook that is resonsible for recording information from the
// simulation into a logger.
type LogHook struct {
	Logger *logrus.Logger
	Level  logrus.Level
}

// NewLogHook creates a LogHook that logs at debug level.
func NewLogHook(logger *logrus.Logger) *LogHook {
	return &LogHook{
		Logger: logger,
		Level:  logrus.DebugLevel,
	}
}

// Func logs the hook position and the item.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.Logger.IsLevelEnabled(h.Level) {
		return
	}

	entry := h.Logger.WithField("pos", posName(ctx.Pos))

	switch item := ctx.Item.(type) {
	case nil:
	case fmt.Stringer:
		entry = entry.WithField("item", item.String())
	default:
		entry = entry.WithField("item", fmt.Sprintf("%v", item))
	}

	entry.Log(h.Level, "hook")
}

func posName(pos *HookPos) string {
	if pos == nil {
		return ""
	}

	return pos.Name
}
