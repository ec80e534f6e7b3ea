package observability

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/stat"
)

// StatEventLogger is a stat.Observer that writes every notification to a
// logger at Debug level.
type StatEventLogger struct {
	logger *zap.Logger
}

// NewStatEventLogger returns a StatEventLogger writing to logger.
//
// Precondition: logger must be non-nil.
func NewStatEventLogger(logger *zap.Logger) *StatEventLogger {
	if logger == nil {
		panic("observability.NewStatEventLogger: logger must not be nil")
	}
	return &StatEventLogger{logger: logger.Named("stats")}
}

// StatUpdated logs u.
func (l *StatEventLogger) StatUpdated(u stat.Update) {
	l.logger.Debug("stat updated",
		zap.String("tag", string(u.Stat.Tag())),
		zap.Stringer("value_type", u.ValueType),
		zap.Float64("change", u.Change),
		zap.Bool("cascade", u.Cascade),
		zap.Float64("current", u.Stat.Current()),
		zap.Float64("max", u.Stat.Max()),
	)
}

// StatLeveledUp logs lu.
func (l *StatEventLogger) StatLeveledUp(lu stat.LevelUp) {
	l.logger.Info("stat leveled up",
		zap.String("tag", string(lu.Stat.Tag())),
		zap.Int("delta", lu.Delta),
	)
}
