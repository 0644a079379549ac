package work

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/events"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// StandardGetter resolves pinned standard versions
type StandardGetter interface {
	Get(code string, version int) (*standards.Standard, error)
}

// Recomputer reruns purification for the holdings of a security
type Recomputer interface {
	RecomputeForISIN(ctx context.Context, isin, standardCode string) error
}

// Listeners wires domain events to background work: a published
// standard version fans out a batch re-evaluation, a superseded verdict
// recomputes purification for the affected holdings.
type Listeners struct {
	bus       *events.Bus
	standards StandardGetter
	batch     *BatchRunner
	purifier  Recomputer
	log       zerolog.Logger
}

// NewListeners creates the event listeners
func NewListeners(bus *events.Bus, standardsGetter StandardGetter, batch *BatchRunner, purifier Recomputer, log zerolog.Logger) *Listeners {
	return &Listeners{
		bus:       bus,
		standards: standardsGetter,
		batch:     batch,
		purifier:  purifier,
		log:       log.With().Str("component", "work_listeners").Logger(),
	}
}

// Register subscribes the listeners on the bus. Handlers hand off to
// goroutines immediately: bus dispatch runs on the emitter's goroutine
// and must not block on a batch run.
func (l *Listeners) Register(ctx context.Context) {
	l.bus.Subscribe(events.StandardPublished, func(event *events.Event) {
		published, ok := event.GetTypedData().(*events.StandardPublishedData)
		if !ok {
			l.log.Error().Str("type", string(event.Type)).Msg("Malformed standard published event")
			return
		}
		go l.rescreenUniverse(ctx, published.Code, published.Version)
	})

	l.bus.Subscribe(events.VerdictSuperseded, func(event *events.Event) {
		superseded, ok := event.GetTypedData().(*events.VerdictSupersededData)
		if !ok {
			l.log.Error().Str("type", string(event.Type)).Msg("Malformed verdict superseded event")
			return
		}
		go func() {
			if err := l.purifier.RecomputeForISIN(ctx, superseded.ISIN, superseded.StandardCode); err != nil {
				l.log.Error().Err(err).
					Str("isin", superseded.ISIN).
					Msg("Purification recompute after supersession failed")
			}
		}()
	})
}

func (l *Listeners) rescreenUniverse(ctx context.Context, code string, version int) {
	std, err := l.standards.Get(code, version)
	if err != nil {
		l.log.Error().Err(err).Str("standard", code).Int("version", version).
			Msg("Published standard version not found for batch run")
		return
	}
	if _, err := l.batch.Run(ctx, std); err != nil {
		l.log.Error().Err(err).Str("standard", code).Msg("Batch re-evaluation failed")
	}
}
