// Package telemetry records gameplay events to a SQL store and, optionally,
// to InfluxDB as time series points.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"kickshift/backend/internal/shared/types"
)

// Event is one stored gameplay event.
type Event struct {
	ID         string `gorm:"primaryKey;size:36"`
	MatchID    string `gorm:"size:64;index:idx_event_match"`
	Type       string `gorm:"column:event_type;size:32;index:idx_event_type"`
	PlayerID   string `gorm:"size:64"`
	Team       int
	Tick       uint64
	OccurredMS int64 `gorm:"index:idx_event_time"`
	Payload    datatypes.JSON
	CreatedAt  time.Time

	// Values are the numeric payload fields, kept for sinks that want
	// them without decoding Payload.
	Values map[string]float64 `gorm:"-"`
}

func (Event) TableName() string { return "gameplay_events" }

// FromGameplay converts a simulation event for storage.
func FromGameplay(ev types.GameplayEvent) (Event, error) {
	payload, err := json.Marshal(ev.Values)
	if err != nil {
		return Event{}, fmt.Errorf("encode payload: %w", err)
	}
	return Event{
		ID:         uuid.NewString(),
		MatchID:    ev.MatchID,
		Type:       ev.Type,
		PlayerID:   ev.PlayerID,
		Team:       ev.Team,
		Tick:       ev.Tick,
		OccurredMS: ev.OccurredMS,
		Payload:    datatypes.JSON(payload),
		Values:     ev.Values,
	}, nil
}

// FromIngest converts an event posted to the telemetry service. Missing IDs
// and timestamps are filled in.
func FromIngest(ev types.TelemetryEvent) (Event, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode payload: %w", err)
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	values := make(map[string]float64)
	for k, v := range ev.Payload {
		if f, ok := v.(float64); ok {
			values[k] = f
		}
	}
	return Event{
		ID:         ev.EventID,
		MatchID:    ev.MatchID,
		Type:       ev.EventType,
		PlayerID:   ev.PlayerID,
		Team:       ev.Team,
		Tick:       ev.Tick,
		OccurredMS: ev.Timestamp,
		Payload:    datatypes.JSON(payload),
		Values:     values,
	}, nil
}

// Ingest is the wire form of a stored event.
func (e Event) Ingest() types.TelemetryEvent {
	var payload map[string]any
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}
	return types.TelemetryEvent{
		EventID:   e.ID,
		EventType: e.Type,
		MatchID:   e.MatchID,
		PlayerID:  e.PlayerID,
		Team:      e.Team,
		Tick:      e.Tick,
		Timestamp: e.OccurredMS,
		Payload:   payload,
	}
}
