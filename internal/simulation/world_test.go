package simulation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/shared/types"
)

type recordingSink struct {
	events []types.GameplayEvent
}

func (s *recordingSink) Publish(ev types.GameplayEvent) { s.events = append(s.events, ev) }

func (s *recordingSink) count(kind string) int {
	n := 0
	for _, ev := range s.events {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Match.TickRate = 64
	cfg.Match.CountDownDelay = 0.5
	cfg.Match.CountDownFrom = 2
	cfg.Match.GoalCelebrationDuration = 0.5
	cfg.Match.GameOverCelebrationDuration = 0.5
	cfg.Match.OvertimeMessageDuration = 0.5
	return cfg
}

func newTestWorld(t *testing.T, cfg *config.Config, ids ...string) (*World, *recordingSink) {
	t.Helper()
	spawns := make([]PlayerSpawn, 0, len(ids))
	for _, id := range ids {
		spawns = append(spawns, PlayerSpawn{PlayerID: id, DisplayName: "Pilot " + id})
	}
	sink := &recordingSink{}
	w, err := NewWorld("m1", cfg, spawns, zerolog.Nop(), WithEventSink(sink))
	require.NoError(t, err)
	return w, sink
}

func ticks(w *World, n int) {
	for i := 0; i < n; i++ {
		w.Tick()
	}
}

func hasEvent(s types.MatchState, kind string) bool {
	for _, ev := range s.Events {
		if ev.Type == kind {
			return true
		}
	}
	return false
}

func TestNewWorldSpawnsAlternatingTeams(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), "p1", "p2", "p3")
	s := w.Snapshot()

	require.Len(t, s.Cars, 3)
	assert.Equal(t, 0, s.Cars["p1"].Team)
	assert.Equal(t, 1, s.Cars["p2"].Team)
	assert.Equal(t, 0, s.Cars["p3"].Team)
	assert.Equal(t, "Pilot p1", s.Cars["p1"].DisplayName)

	assert.Equal(t, types.PhaseWaitingForRound, s.Phase)
	assert.False(t, s.Cars["p1"].InputEnabled)

	assert.Equal(t, -20.0, s.Cars["p1"].Position.Z)
	assert.Equal(t, 20.0, s.Cars["p2"].Position.Z)
	assert.Equal(t, -6.0, s.Cars["p3"].Position.X)
	assert.Equal(t, types.Vec3{Y: 2}, s.Ball.Position)
	assert.Equal(t, 300000, s.Score.TimeRemainingMS)
}

func TestNewWorldGeneratesMatchID(t *testing.T) {
	w, err := NewWorld("", testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, w.Snapshot().MatchID, 36)
}

func TestCountdownThenKickoff(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), "p1")

	ticks(w, 31)
	assert.Equal(t, 0, w.Snapshot().Countdown, "hidden during the delay")
	ticks(w, 1)
	assert.Equal(t, 2, w.Snapshot().Countdown)

	// round starts 0.5 + 2 seconds in
	ticks(w, 127)
	s := w.Snapshot()
	assert.Equal(t, types.PhaseWaitingForRound, s.Phase)
	assert.Equal(t, 1, s.Countdown)

	w.Tick()
	s = w.Snapshot()
	assert.Equal(t, types.PhasePlayingRound, s.Phase)
	assert.Equal(t, 0, s.Countdown)
	assert.True(t, s.Cars["p1"].InputEnabled)
	assert.True(t, hasEvent(s, "kickoff"))
	assert.Equal(t, 1, sink.count("kickoff"))
}

func TestTickDecreasesTimerOnlyWhilePlaying(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	w, _ := newTestWorld(t, cfg, "p1")
	require.Equal(t, types.PhasePlayingRound, w.Snapshot().Phase)

	before := w.Snapshot().Score.TimeRemainingMS
	ticks(w, 64)
	assert.Equal(t, before-1000, w.Snapshot().Score.TimeRemainingMS)
}

func TestGoalScoresAndStartsNextRound(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	w, sink := newTestWorld(t, cfg, "p1", "p2")

	w.ball.Reset(mgl64.Vec3{0, 1, cfg.Match.ArenaHalfLength - 2})
	w.Tick()

	s := w.Snapshot()
	assert.Equal(t, [2]int{1, 0}, s.Score.Teams)
	assert.Equal(t, types.PhaseGoalCelebration, s.Phase)
	require.True(t, hasEvent(s, "goal"))
	assert.Equal(t, 1, sink.count("goal"))

	// the explosion throws the ball out of the goal
	assert.Greater(t, w.ball.Body().PendingVelocityChange().Len()+w.ball.Body().PendingAcceleration().Len(), 0.0)

	ticks(w, 31)
	assert.Equal(t, types.PhaseGoalCelebration, w.Snapshot().Phase)
	w.Tick()
	s = w.Snapshot()
	assert.Equal(t, types.PhasePlayingRound, s.Phase, "skip countdown restarts straight away")
	assert.Equal(t, [2]int{1, 0}, s.Score.Teams)
	assert.Equal(t, types.Vec3{Y: 2}, s.Ball.Position)
	assert.Equal(t, 1, sink.count("goal"))
}

func TestGoalOnlyCountsWhilePlaying(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), "p1")
	require.Equal(t, types.PhaseWaitingForRound, w.Snapshot().Phase)

	w.ball.Reset(mgl64.Vec3{0, 1, -testConfig().Match.ArenaHalfLength + 2})
	w.Tick()
	assert.Equal(t, [2]int{}, w.Snapshot().Score.Teams)
	assert.Zero(t, sink.count("goal"))
}

func TestOvertimeThenGoldenGoalEndsGame(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	cfg.Match.GameDuration = 1
	w, sink := newTestWorld(t, cfg, "p1", "p2")

	ticks(w, 64)
	s := w.Snapshot()
	assert.True(t, s.Score.Overtime)
	assert.Equal(t, types.PhaseWaitingForRound, s.Phase)
	assert.Equal(t, 1, sink.count("overtime"))
	assert.False(t, s.Cars["p1"].InputEnabled)

	// overtime message, delay and countdown: 0.5 + 0.5 + 2 seconds
	ticks(w, 192)
	s = w.Snapshot()
	require.Equal(t, types.PhasePlayingRound, s.Phase)
	assert.Equal(t, 0, s.Score.TimeRemainingMS)

	w.ball.Reset(mgl64.Vec3{0, 1, -cfg.Match.ArenaHalfLength + 2})
	w.Tick()
	assert.Equal(t, [2]int{0, 1}, w.Snapshot().Score.Teams)

	ticks(w, 32)
	s = w.Snapshot()
	assert.Equal(t, types.PhaseGameOver, s.Phase)
	require.Equal(t, 1, sink.count("game_over"))
	for _, ev := range sink.events {
		if ev.Type == "game_over" {
			assert.Equal(t, 1, ev.Team)
			assert.Equal(t, 0.0, ev.Values["draw"])
		}
	}

	// the celebration ends with a fresh game
	ticks(w, 32)
	s = w.Snapshot()
	assert.Equal(t, types.PhasePlayingRound, s.Phase)
	assert.Equal(t, [2]int{}, s.Score.Teams)
	assert.False(t, s.Score.Overtime)
}

func TestTimeUpWithALeadEndsGame(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	cfg.Match.GameDuration = 1
	w, sink := newTestWorld(t, cfg, "p1", "p2")
	w.flow.scores = [2]int{2, 1}

	ticks(w, 64)
	assert.Equal(t, types.PhaseGameOver, w.Snapshot().Phase)
	assert.Zero(t, sink.count("overtime"))
	require.Equal(t, 1, sink.count("game_over"))
	assert.Equal(t, 0, sink.events[len(sink.events)-1].Team)
}

func TestEnsurePlayerRestartsGame(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	w, sink := newTestWorld(t, cfg, "p1")
	w.flow.scores = [2]int{3, 0}

	team, err := w.EnsurePlayer("p2", "Second")
	require.NoError(t, err)
	assert.Equal(t, 1, team)
	assert.Equal(t, 1, sink.count("player_join"))
	assert.Equal(t, 2, w.HumanCount())
	assert.Equal(t, [2]int{}, w.Snapshot().Score.Teams)

	team, err = w.EnsurePlayer("p1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, 0, team)
	assert.Equal(t, "Renamed", w.Snapshot().Cars["p1"].DisplayName)
	assert.Equal(t, 1, sink.count("player_join"))
}

func TestJoinAfterLeaveBalancesTeams(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), "p1", "p2", "p3")
	w.RemovePlayer("p1")

	team, err := w.EnsurePlayer("p4", "")
	require.NoError(t, err)

	s := w.Snapshot()
	var sizes [TeamCount]int
	for _, car := range s.Cars {
		sizes[car.Team]++
	}
	assert.Equal(t, [TeamCount]int{2, 1}, sizes)
	assert.Equal(t, s.Cars["p4"].Team, team)
	assert.Equal(t, 0, s.Cars["p2"].Team)
	assert.Equal(t, 1, s.Cars["p3"].Team)

	joinTeam := -1
	for _, ev := range sink.events {
		if ev.Type == "player_join" {
			joinTeam = ev.Team
		}
	}
	assert.Equal(t, team, joinTeam)
}

func TestEnsurePlayerRejectsFullMatch(t *testing.T) {
	cfg := testConfig()
	cfg.Match.MaxPlayers = 2
	w, _ := newTestWorld(t, cfg, "p1", "p2")

	_, err := w.EnsurePlayer("p3", "")
	assert.ErrorIs(t, err, ErrMatchFull)
	assert.Equal(t, 2, w.HumanCount())
}

func TestApplyInputUnknownPlayer(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), "p1")
	err := w.ApplyInput("ghost", types.CarInput{})
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	require.NoError(t, w.ApplyInput("p1", types.CarInput{Jump: true}))
	assert.True(t, w.Snapshot().Cars["p1"].LastInput.Jump)
	assert.Equal(t, "p1", w.Snapshot().Cars["p1"].LastInput.PlayerID)
}

func TestRemovePlayer(t *testing.T) {
	w, sink := newTestWorld(t, testConfig(), "p1", "p2")
	w.RemovePlayer("p1")
	w.RemovePlayer("nobody")

	_, ok := w.Snapshot().Cars["p1"]
	assert.False(t, ok)
	assert.Equal(t, 1, w.HumanCount())
	assert.Equal(t, 1, sink.count("player_leave"))
	assert.Len(t, w.physics.Bodies(), 2, "ball and the remaining car")
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), "p1")
	w.mu.Lock()
	w.emit(types.GameplayEvent{Type: "kick", Values: map[string]float64{"speed": 1}})
	w.mu.Unlock()

	snap := w.Snapshot()
	car := snap.Cars["p1"]
	car.Position.X = 999999
	snap.Cars["p1"] = car
	snap.Events[0].Values["speed"] = 42

	snap2 := w.Snapshot()
	assert.NotEqual(t, 999999.0, snap2.Cars["p1"].Position.X)
	assert.Equal(t, 1.0, snap2.Events[0].Values["speed"])
}

func TestCarsSettleAndDriveForward(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	w, _ := newTestWorld(t, cfg, "p1")
	require.NoError(t, w.ApplyInput("p1", types.CarInput{Accelerate: 1}))

	ticks(w, 128)
	car := w.Snapshot().Cars["p1"]
	assert.True(t, car.WheelsGrounded)
	assert.Greater(t, car.Velocity.Z, 2.0)
	assert.Greater(t, car.Position.Z, -19.0)
	assert.InDelta(t, 0, car.Position.X, 0.5)
}

func TestKickTriggerKicksBall(t *testing.T) {
	cfg := testConfig()
	w, sink := newTestWorld(t, cfg, "p1")
	car := w.players["p1"].vehicle.Body()
	car.SetVelocity(mgl64.Vec3{0, 0, 5})
	w.ball.Reset(mgl64.Vec3{0, 0.5, -18.3})

	w.Tick()
	require.Equal(t, 1, sink.count("kick"))
	kick := sink.events[len(sink.events)-1]
	assert.Equal(t, "p1", kick.PlayerID)
	assert.InDelta(t, 5, kick.Values["speed"], 0.5)
	assert.Greater(t, w.ball.Body().PendingVelocityChange().Z(), 0.0)

	// staying inside the trigger does not kick again
	w.Tick()
	assert.Equal(t, 1, sink.count("kick"))
}

func TestHeadOnCarsCollideOnce(t *testing.T) {
	cfg := testConfig()
	w, sink := newTestWorld(t, cfg, "p1", "p2")
	p1 := w.players["p1"].vehicle
	p2 := w.players["p2"].vehicle
	p2.Spawn(mgl64.Vec3{0, 0.5, -17.6}, mathx.YawRotation(180))
	p1.Body().SetVelocity(mgl64.Vec3{0, 0, 5})
	p2.Body().SetVelocity(mgl64.Vec3{0, 0, -5})

	w.Tick()
	require.Equal(t, 1, sink.count("player_collision"))
	assert.Less(t, p1.Body().PendingVelocityChange().Z(), 0.0)
	assert.Greater(t, p2.Body().PendingVelocityChange().Z(), 0.0)
	start, end := p1.SlipWindow()
	assert.Greater(t, end, start)
}

func TestPulseEventReported(t *testing.T) {
	cfg := testConfig()
	cfg.Match.SkipCountdown = true
	w, sink := newTestWorld(t, cfg, "p1")

	require.NoError(t, w.ApplyInput("p1", types.CarInput{Pulse: true}))
	ticks(w, 4)
	require.NoError(t, w.ApplyInput("p1", types.CarInput{}))
	w.Tick()

	require.Equal(t, 1, sink.count("pulse"))
	assert.InDelta(t, 0.25, sink.events[len(sink.events)-1].Values["charge"], 1e-9)
}
