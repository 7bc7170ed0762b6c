package simulation

import (
	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// TeamCount is the number of teams in a match.
const TeamCount = 2

// goal is an axis-aligned scoring volume. ScoringTeam gets the point when
// the ball is fully inside it.
type goal struct {
	ScoringTeam int
	Min, Max    mgl64.Vec3
}

func (g goal) Center() mgl64.Vec3 {
	return g.Min.Add(g.Max).Mul(0.5)
}

func (g goal) contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < g.Min[i] || p[i] > g.Max[i] {
			return false
		}
	}
	return true
}

// Contains reports whether the box [lo, hi] lies fully inside the goal.
func (g goal) Contains(lo, hi mgl64.Vec3) bool {
	return g.contains(lo) && g.contains(hi)
}

// arenaPlanes returns the floor, ceiling and four walls of the pitch.
func arenaPlanes(m *config.MatchConfig) []physics.Plane {
	rest, fric := m.WallRestitution, m.WallFriction
	return []physics.Plane{
		physics.PlaneThrough("floor", mgl64.Vec3{}, mathx.Up, rest, fric),
		physics.PlaneThrough("ceiling", mgl64.Vec3{0, m.ArenaHeight, 0}, mathx.Down, rest, fric),
		physics.PlaneThrough("wall_left", mgl64.Vec3{-m.ArenaHalfWidth, 0, 0}, mathx.Right, rest, fric),
		physics.PlaneThrough("wall_right", mgl64.Vec3{m.ArenaHalfWidth, 0, 0}, mathx.Right.Mul(-1), rest, fric),
		physics.PlaneThrough("wall_back", mgl64.Vec3{0, 0, -m.ArenaHalfLength}, mathx.Forward, rest, fric),
		physics.PlaneThrough("wall_front", mgl64.Vec3{0, 0, m.ArenaHalfLength}, mathx.Forward.Mul(-1), rest, fric),
	}
}

// arenaGoals places a goal at each end. Team 0 attacks +Z.
func arenaGoals(m *config.MatchConfig) [TeamCount]goal {
	hw, h, l, d := m.GoalHalfWidth, m.GoalHeight, m.ArenaHalfLength, m.GoalDepth
	return [TeamCount]goal{
		{ScoringTeam: 0, Min: mgl64.Vec3{-hw, 0, l - d}, Max: mgl64.Vec3{hw, h, l}},
		{ScoringTeam: 1, Min: mgl64.Vec3{-hw, 0, -l}, Max: mgl64.Vec3{hw, h, -l + d}},
	}
}

// spawnPose returns where the slot-th player of a team starts. Team 0
// starts at -Z facing +Z, team 1 mirrored.
func spawnPose(m *config.MatchConfig, team, slot int) (mgl64.Vec3, mgl64.Quat) {
	x := m.SpawnSlotOffsets[slot%len(m.SpawnSlotOffsets)]
	if team == 0 {
		return mgl64.Vec3{x, m.SpawnHeight, -m.SpawnDistance}, mgl64.QuatIdent()
	}
	return mgl64.Vec3{-x, m.SpawnHeight, m.SpawnDistance}, mathx.YawRotation(180)
}
