// Package metrics holds the OpenTelemetry instruments recorded by the
// simulation. Without an installed provider the global meter is a no-op.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "kickshift/simulation"

// Instruments is safe for concurrent use.
type Instruments struct {
	ticks       metric.Int64Counter
	tickSeconds metric.Float64Histogram
	kicks       metric.Int64Counter
	collisions  metric.Int64Counter
	goals       metric.Int64Counter
	players     metric.Int64ObservableGauge
}

// New builds the instruments on the global meter. players is polled for the
// connected player gauge and may be nil.
func New(players func() int) (*Instruments, error) {
	return NewWithMeter(otel.Meter(instrumentationName), players)
}

func NewWithMeter(m metric.Meter, players func() int) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)
	in.ticks, err = m.Int64Counter(
		"simulation.ticks",
		metric.WithDescription("Fixed ticks simulated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	in.tickSeconds, err = m.Float64Histogram(
		"simulation.tick.duration",
		metric.WithDescription("Wall time spent in one fixed tick"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}
	in.kicks, err = m.Int64Counter(
		"simulation.kicks",
		metric.WithDescription("Ball kicks by car collider"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kick counter: %w", err)
	}
	in.collisions, err = m.Int64Counter(
		"simulation.player_collisions",
		metric.WithDescription("Resolved car-on-car hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collision counter: %w", err)
	}
	in.goals, err = m.Int64Counter(
		"simulation.goals",
		metric.WithDescription("Goals by scoring team"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating goal counter: %w", err)
	}

	in.players, err = m.Int64ObservableGauge(
		"simulation.players",
		metric.WithDescription("Players in the match"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating player gauge: %w", err)
	}
	if players != nil {
		_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(in.players, int64(players()))
			return nil
		}, in.players)
		if err != nil {
			return nil, fmt.Errorf("registering player callback: %w", err)
		}
	}
	return &in, nil
}

func (in *Instruments) Tick(ctx context.Context, took time.Duration) {
	in.ticks.Add(ctx, 1)
	in.tickSeconds.Record(ctx, took.Seconds())
}

func (in *Instruments) Kick(ctx context.Context, collider string) {
	in.kicks.Add(ctx, 1, metric.WithAttributes(attribute.String("collider", collider)))
}

func (in *Instruments) PlayerCollision(ctx context.Context) {
	in.collisions.Add(ctx, 1)
}

func (in *Instruments) Goal(ctx context.Context, team int) {
	in.goals.Add(ctx, 1, metric.WithAttributes(attribute.Int("team", team)))
}
