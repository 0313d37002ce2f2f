package realtime

import (
	"errors"

	"go.uber.org/zap"
)

// ErrInvalidTarget is returned when an event addresses a non-positive user id.
var ErrInvalidTarget = errors.New("realtime: target user id must be positive")

// Dispatcher bridges domain outcomes to live connections. It never mutates
// relationship state; handlers call it after a mutation succeeds. Delivery
// is best-effort: an offline target is a successful no-op.
type Dispatcher struct {
	reg    *Registry
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(reg *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, logger: logger}
}

// Notify delivers e to its target if a session is registered. An absent
// session completes successfully without a send.
func (d *Dispatcher) Notify(e *Event) error {
	if e.Target <= 0 {
		return ErrInvalidTarget
	}
	s := d.reg.Lookup(e.Target)
	if s == nil {
		d.logger.Debug("notify skipped, target offline",
			zap.Int64("target", e.Target),
			zap.String("kind", string(e.Kind)))
		return nil
	}
	s.Send(e.packet())
	return nil
}

// NotifyMany delivers e to each target independently. Unreachable targets
// never block or fail delivery to the others; invalid ids are skipped.
func (d *Dispatcher) NotifyMany(targets []int64, e *Event) {
	for _, target := range targets {
		ev := *e
		ev.Target = target
		if err := d.Notify(&ev); err != nil {
			d.logger.Warn("notify skipped, invalid target",
				zap.Int64("target", target),
				zap.String("kind", string(e.Kind)))
		}
	}
}

// BroadcastExcept delivers e to every registered session but selfID. Used
// for platform-wide presence announcements.
func (d *Dispatcher) BroadcastExcept(selfID int64, e *Event) {
	d.reg.BroadcastExcept(selfID, e)
}
