package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"kickshift/backend/internal/shared/types"
)

const (
	defaultBuffer = 1024
	batchSize     = 64
	flushInterval = 250 * time.Millisecond
)

// EventStore is where batches of events end up.
type EventStore interface {
	Record(ctx context.Context, events ...Event) error
}

// PointWriter receives every recorded event as it is flushed.
type PointWriter interface {
	Write(ev Event)
}

// Recorder buffers gameplay events off the tick goroutine and writes them
// in batches. Publish never blocks; events are dropped when the buffer is
// full.
type Recorder struct {
	events  chan types.GameplayEvent
	store   EventStore
	points  PointWriter
	log     zerolog.Logger
	dropped atomic.Int64
}

// NewRecorder creates a recorder. points may be nil.
func NewRecorder(store EventStore, points PointWriter, buffer int, log zerolog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Recorder{
		events: make(chan types.GameplayEvent, buffer),
		store:  store,
		points: points,
		log:    log,
	}
}

func (r *Recorder) Publish(ev types.GameplayEvent) {
	select {
	case r.events <- ev:
	default:
		if r.dropped.Add(1) == 1 {
			r.log.Warn().Str("type", ev.Type).Msg("telemetry buffer full, dropping events")
		}
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Run writes events until ctx is done, then flushes what is still buffered.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := r.store.Record(ctx, batch...); err != nil {
			r.log.Error().Err(err).Int("count", len(batch)).Msg("failed to record events")
		}
		if r.points != nil {
			for _, ev := range batch {
				r.points.Write(ev)
			}
		}
		batch = batch[:0]
	}
	add := func(ge types.GameplayEvent) {
		ev, err := FromGameplay(ge)
		if err != nil {
			r.log.Error().Err(err).Str("type", ge.Type).Msg("dropping event")
			return
		}
		batch = append(batch, ev)
	}

	for {
		select {
		case ge := <-r.events:
			add(ge)
			if len(batch) >= batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			for {
				select {
				case ge := <-r.events:
					add(ge)
				default:
					flush(context.Background())
					return
				}
			}
		}
	}
}
