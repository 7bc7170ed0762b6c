package simulation

import (
	"context"
	"math"

	"kickshift/backend/internal/physics"
	"kickshift/backend/internal/shared/types"
)

// flow is the round state machine. All deadlines are in simulation seconds
// and are checked once per tick.
type flow struct {
	phase   types.MatchPhase
	scores  [TeamCount]int
	elapsed float64
	// overtime is set once regulation ends tied; the next goal ends the game.
	overtime bool

	countdownAt float64
	roundAt     float64
	phaseEnds   float64
}

// countdown is the number shown before the round starts, 0 when hidden.
func (f *flow) countdown(now float64) int {
	if f.phase != types.PhaseWaitingForRound || now < f.countdownAt {
		return 0
	}
	return max(int(math.Ceil(f.roundAt-now-1e-9)), 0)
}

func (f *flow) score(duration float64) types.ScoreState {
	remaining := math.Max(duration-f.elapsed, 0)
	return types.ScoreState{
		Teams:           f.scores,
		TimeRemainingMS: int(math.Round(remaining * 1000)),
		Overtime:        f.overtime,
	}
}

// reached reports whether deadline falls within the tick that just ended.
func (w *World) reached(deadline float64) bool {
	return w.now >= deadline-w.dt/2
}

func (w *World) startGame() {
	w.flow.scores = [TeamCount]int{}
	w.flow.elapsed = 0
	w.flow.overtime = false
	w.nextRound()
}

func (w *World) nextRound() {
	w.resetForRound()
	if w.cfg.Match.SkipCountdown {
		w.startRound()
		return
	}
	w.flow.countdownAt = w.now + w.cfg.Match.CountDownDelay
	w.flow.roundAt = w.flow.countdownAt + float64(w.cfg.Match.CountDownFrom)
}

// resetForRound respawns every player and the ball with inputs disabled.
// Teams alternate in join order.
func (w *World) resetForRound() {
	var slots [TeamCount]int
	for i, p := range w.order {
		p.team = i % TeamCount
		pos, rot := spawnPose(&w.cfg.Match, p.team, slots[p.team])
		slots[p.team]++
		p.vehicle.Spawn(pos, rot)
		p.vehicle.SetInputEnabled(false)
		p.tracker.Reset()
	}
	w.ball.Reset(w.cfg.Match.BallSpawn.Vec())
	w.flow.phase = types.PhaseWaitingForRound
}

func (w *World) startRound() {
	for _, p := range w.order {
		p.vehicle.SetInputEnabled(true)
	}
	w.flow.phase = types.PhasePlayingRound
	w.emit(types.GameplayEvent{Type: "kickoff", Team: -1})
}

func (w *World) startOvertime() {
	w.flow.overtime = true
	w.resetForRound()
	w.flow.countdownAt = w.now + w.cfg.Match.OvertimeMessageDuration + w.cfg.Match.CountDownDelay
	w.flow.roundAt = w.flow.countdownAt + float64(w.cfg.Match.CountDownFrom)
	w.emit(types.GameplayEvent{Type: "overtime", Team: -1})
}

func (w *World) gameOver() {
	w.flow.phase = types.PhaseGameOver
	w.flow.phaseEnds = w.now + w.cfg.Match.GameOverCelebrationDuration

	winner := 0
	for team, s := range w.flow.scores {
		if s > w.flow.scores[winner] {
			winner = team
		}
	}
	draw := 0.0
	for team, s := range w.flow.scores {
		if team != winner && s == w.flow.scores[winner] {
			draw = 1
			winner = -1
			break
		}
	}
	w.emit(types.GameplayEvent{
		Type: "game_over",
		Team: winner,
		Values: map[string]float64{
			"draw":   draw,
			"team_0": float64(w.flow.scores[0]),
			"team_1": float64(w.flow.scores[1]),
		},
	})
	w.log.Info().Ints("scores", w.flow.scores[:]).Int("winner", winner).Msg("game over")
}

func (w *World) advanceFlow() {
	m := &w.cfg.Match
	switch w.flow.phase {
	case types.PhaseWaitingForRound:
		if w.reached(w.flow.roundAt) {
			w.startRound()
		}
	case types.PhasePlayingRound:
		w.flow.elapsed += w.dt
		if !w.flow.overtime && w.flow.elapsed >= m.GameDuration-w.dt/2 {
			if w.flow.scores[0] == w.flow.scores[1] {
				w.startOvertime()
			} else {
				w.gameOver()
			}
		}
	case types.PhaseGoalCelebration:
		if !w.reached(w.flow.phaseEnds) {
			return
		}
		if w.flow.elapsed < m.GameDuration-w.dt/2 {
			w.nextRound()
		} else {
			w.gameOver()
		}
	case types.PhaseGameOver:
		if w.reached(w.flow.phaseEnds) {
			w.startGame()
		}
	default:
		panic("simulation: unhandled match phase " + string(w.flow.phase))
	}
}

// checkGoals scores when the ball's bounds are fully inside a goal volume.
func (w *World) checkGoals() {
	lo, hi := w.ball.Bounds()
	for _, g := range w.goals {
		if g.Contains(lo, hi) {
			w.scoreGoal(g)
			return
		}
	}
}

func (w *World) scoreGoal(g goal) {
	if w.flow.phase != types.PhasePlayingRound {
		return
	}
	w.flow.scores[g.ScoringTeam]++
	w.explode(g)
	w.flow.phase = types.PhaseGoalCelebration
	w.flow.phaseEnds = w.now + w.cfg.Match.GoalCelebrationDuration

	w.emit(types.GameplayEvent{
		Type: "goal",
		Team: g.ScoringTeam,
		Values: map[string]float64{
			"team_0": float64(w.flow.scores[0]),
			"team_1": float64(w.flow.scores[1]),
		},
	})
	if w.metrics != nil {
		w.metrics.Goal(context.Background(), g.ScoringTeam)
	}
	w.log.Info().Int("team", g.ScoringTeam).Ints("scores", w.flow.scores[:]).Msg("goal")
}

// explode pushes every body near the goal away from its centre.
func (w *World) explode(g goal) {
	m := &w.cfg.Match
	center := g.Center()
	for _, b := range w.physics.OverlapSphere(center, m.GoalExplosionRadius, physics.AllLayers) {
		if b.Kinematic {
			continue
		}
		b.AddExplosionForce(m.GoalExplosionForce, center, m.GoalExplosionRadius, m.GoalExplosionUpwardsModifier, physics.Force)
	}
}
