// Package simulation runs the authoritative match: vehicles, ball, arena and
// round flow advanced together at a fixed tick.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kickshift/backend/internal/ball"
	"kickshift/backend/internal/config"
	"kickshift/backend/internal/input"
	"kickshift/backend/internal/metrics"
	"kickshift/backend/internal/physics"
	"kickshift/backend/internal/shared/types"
	"kickshift/backend/internal/vehicle"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrMatchFull     = errors.New("match is full")
)

// PlayerSpawn defines initial player details at match creation.
type PlayerSpawn struct {
	PlayerID    string
	DisplayName string
}

// EventSink receives every gameplay event as it happens. Publish is called
// with the world lock held and must not block.
type EventSink interface {
	Publish(types.GameplayEvent)
}

type Option func(*World)

func WithEventSink(s EventSink) Option {
	return func(w *World) { w.sink = s }
}

func WithMetrics(m *metrics.Instruments) Option {
	return func(w *World) { w.metrics = m }
}

type player struct {
	id      string
	name    string
	team    int
	vehicle *vehicle.Vehicle
	tracker *input.Tracker
	frame   types.CarInput
}

// World is the authoritative simulation state.
type World struct {
	mu sync.RWMutex

	cfg     *config.Config
	log     zerolog.Logger
	sink    EventSink
	metrics *metrics.Instruments

	matchID   string
	createdAt time.Time
	tick      uint64
	now       float64
	dt        float64

	physics *physics.World
	ball    *ball.Ball
	goals   [TeamCount]goal
	players map[string]*player
	order   []*player

	flow   flow
	events []types.GameplayEvent
}

// NewWorld builds the arena, the ball and a vehicle per spawn, then starts
// the first game. An empty matchID gets a random one.
func NewWorld(matchID string, cfg *config.Config, players []PlayerSpawn, log zerolog.Logger, opts ...Option) (*World, error) {
	if matchID == "" {
		matchID = uuid.NewString()
	}
	w := &World{
		cfg:       cfg,
		log:       log.With().Str("match", matchID).Logger(),
		matchID:   matchID,
		createdAt: time.Now().UTC(),
		dt:        cfg.Match.TickDuration(),
		physics:   physics.NewWorld(mgl64.Vec3{0, -cfg.Match.Gravity, 0}),
		ball:      ball.New(&cfg.Ball),
		goals:     arenaGoals(&cfg.Match),
		players:   make(map[string]*player, len(players)),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range arenaPlanes(&cfg.Match) {
		w.physics.AddPlane(p)
	}
	w.physics.AddBody(w.ball.Body())
	w.physics.SetContactListener(w.handleContact)
	w.physics.SetTriggerListener(w.handleTrigger)

	for _, p := range players {
		if _, err := w.addPlayer(p.PlayerID, p.DisplayName); err != nil {
			return nil, fmt.Errorf("add player %s: %w", p.PlayerID, err)
		}
	}
	w.startGame()
	return w, nil
}

// addPlayer appends a player at the end of the join order. Its team is the
// one resetForRound will give that slot, so the following startGame keeps it.
func (w *World) addPlayer(id, name string) (*player, error) {
	if len(w.order) >= w.cfg.Match.MaxPlayers {
		return nil, ErrMatchFull
	}
	v, err := vehicle.New(id, &w.cfg.Car, &w.cfg.Stamina, w.log)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = id
	}
	p := &player{
		id:      id,
		name:    name,
		team:    len(w.order) % TeamCount,
		vehicle: v,
		tracker: input.NewTracker(input.Options{
			AutomaticAcceleration: w.cfg.Car.AutomaticAcceleration,
			DiveOnRelease:         w.cfg.Car.DiveOnRelease,
		}),
	}
	w.physics.AddBody(v.Body())
	w.players[id] = p
	w.order = append(w.order, p)
	return p, nil
}

// ApplyInput stores the latest held controls for the player. Edges are
// derived when the next tick consumes them.
func (w *World) ApplyInput(playerID string, in types.CarInput) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	in.PlayerID = playerID
	p.frame = in
	return nil
}

// Environment queries, used by vehicles during their tick.

func (w *World) Gravity() mgl64.Vec3 { return w.physics.Gravity }
func (w *World) Ball() *physics.Body { return w.ball.Body() }
func (w *World) OverlapSphere(center mgl64.Vec3, radius float64, mask physics.Layer) []*physics.Body {
	return w.physics.OverlapSphere(center, radius, mask)
}

// Tick advances the world by one fixed step.
func (w *World) Tick() {
	started := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	w.events = w.events[:0]
	clock := vehicle.Clock{Now: w.now, DeltaTime: w.dt}

	for _, p := range w.order {
		report := p.vehicle.FixedUpdate(clock, p.tracker.Next(p.frame), w)
		w.reportVehicle(p, report)
	}
	w.ball.FixedUpdate(w.now, w.dt)
	w.physics.Step(w.now, w.dt)
	w.now += w.dt

	w.checkGoals()
	w.advanceFlow()

	if w.metrics != nil {
		w.metrics.Tick(context.Background(), time.Since(started))
	}
}

func (w *World) handleContact(c physics.Contact) {
	switch owner := c.Body.UserData.(type) {
	case *vehicle.Vehicle:
		owner.HandleContact(c)
	case *ball.Ball:
		owner.HandleContact(c)
	}
}

// handleTrigger routes the first step of a vehicle trigger overlap: the
// ball entering a kick or dome trigger is a kick, another car entering the
// kick trigger is a player collision.
func (w *World) handleTrigger(e physics.TriggerEvent) {
	if !e.Enter {
		return
	}
	v, ok := e.Body.UserData.(*vehicle.Vehicle)
	if !ok {
		return
	}
	p := w.players[v.ID]
	if p == nil {
		w.log.Error().Str("vehicle", v.ID).Msg("trigger on a vehicle without a player")
		return
	}
	tag := e.Body.Colliders[e.Collider].Tag

	switch other := e.Other.UserData.(type) {
	case *ball.Ball:
		if tag != vehicle.TagKick && tag != vehicle.TagDome {
			return
		}
		kick, ok := v.HandleBallCollision(tag, other.Body(), other.Radius())
		if !ok {
			return
		}
		w.emit(types.GameplayEvent{
			Type:     "kick",
			PlayerID: p.id,
			Team:     p.team,
			Values:   map[string]float64{"speed": kick.Speed, "ball_speed": kick.Velocity.Len()},
		})
		if w.metrics != nil {
			w.metrics.Kick(context.Background(), kick.Collider)
		}
	case *vehicle.Vehicle:
		if tag != vehicle.TagKick || e.Other.Colliders[e.OtherCollider].Trigger {
			return
		}
		q := w.players[other.ID]
		if q == nil {
			return
		}
		hit, ok := vehicle.HandlePlayerCollision(v, other, e.Time)
		if !ok {
			return
		}
		w.emit(types.GameplayEvent{
			Type:     "player_collision",
			PlayerID: p.id,
			Team:     p.team,
			Values: map[string]float64{
				"speed":           hit.Speed,
				"strength":        hit.Strength1,
				"victim_strength": hit.Strength2,
			},
		})
		if w.metrics != nil {
			w.metrics.PlayerCollision(context.Background())
		}
	}
}

func (w *World) reportVehicle(p *player, r vehicle.TickReport) {
	if r.PulseReleased != nil {
		w.emit(types.GameplayEvent{
			Type:     "pulse",
			PlayerID: p.id,
			Team:     p.team,
			Values: map[string]float64{
				"charge":  r.PulseReleased.Charge,
				"targets": float64(r.PulseReleased.Targets),
			},
		})
	}
	if r.Launched != nil {
		locked := 0.0
		if r.Launched.LockedOn {
			locked = 1
		}
		w.emit(types.GameplayEvent{
			Type:     "launch",
			PlayerID: p.id,
			Team:     p.team,
			Values: map[string]float64{
				"charge":    r.Launched.Charge,
				"speed":     r.Launched.Speed,
				"locked_on": locked,
			},
		})
	}
	if r.BecameGassed {
		w.log.Debug().Str("player", p.id).Msg("gassed out")
	}
}

// emit stamps ev and records it for the current tick.
func (w *World) emit(ev types.GameplayEvent) {
	ev.MatchID = w.matchID
	ev.Tick = w.tick
	ev.OccurredMS = time.Now().UTC().UnixMilli()
	w.events = append(w.events, ev)
	if w.sink != nil {
		w.sink.Publish(ev)
	}
}

// Snapshot returns a deep copy of state for safe replication.
func (w *World) Snapshot() types.MatchState {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cars := make(map[string]types.CarState, len(w.order))
	for _, p := range w.order {
		car := p.vehicle.Snapshot()
		car.PlayerID = p.id
		car.DisplayName = p.name
		car.Team = p.team
		car.LastInput = p.frame
		cars[p.id] = car
	}

	events := make([]types.GameplayEvent, len(w.events))
	for i, ev := range w.events {
		if ev.Values != nil {
			values := make(map[string]float64, len(ev.Values))
			for k, v := range ev.Values {
				values[k] = v
			}
			ev.Values = values
		}
		events[i] = ev
	}

	body := w.ball.Body()
	return types.MatchState{
		MatchID:   w.matchID,
		Tick:      w.tick,
		CreatedAt: w.createdAt,
		Phase:     w.flow.phase,
		Countdown: w.flow.countdown(w.now),
		Cars:      cars,
		Ball: types.BallState{
			Position:        types.FromVec(body.Position),
			Velocity:        types.FromVec(body.Velocity()),
			AngularVelocity: types.FromVec(body.AngularVelocity()),
			Radius:          w.ball.Radius(),
			Grounded:        w.ball.Grounded(w.now, w.dt),
		},
		Score:  w.flow.score(w.cfg.Match.GameDuration),
		Events: events,
	}
}

// EnsurePlayer inserts a player if not present and returns the assigned
// team. A new player restarts the game, as joining does between local
// matches.
func (w *World) EnsurePlayer(playerID, displayName string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.players[playerID]; ok {
		if displayName != "" {
			p.name = displayName
		}
		return p.team, nil
	}

	p, err := w.addPlayer(playerID, displayName)
	if err != nil {
		return 0, err
	}
	w.emit(types.GameplayEvent{Type: "player_join", PlayerID: p.id, Team: p.team})
	w.startGame()
	return p.team, nil
}

// HumanCount returns the number of connected players.
func (w *World) HumanCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// RemovePlayer removes player from simulation state. The running round
// carries on without them.
func (w *World) RemovePlayer(playerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[playerID]
	if !ok {
		return
	}
	w.physics.RemoveBody(p.vehicle.Body())
	delete(w.players, playerID)
	for i, q := range w.order {
		if q == p {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.emit(types.GameplayEvent{Type: "player_leave", PlayerID: playerID, Team: p.team})
}
