package types

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 represents a position or vector in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromVec converts an mgl64 vector for the wire.
func FromVec(v mgl64.Vec3) Vec3 {
	return Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Quat is an orientation quaternion.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromQuat converts an mgl64 quaternion for the wire.
func FromQuat(q mgl64.Quat) Quat {
	return Quat{W: q.W, X: q.V.X(), Y: q.V.Y(), Z: q.V.Z()}
}

// Vec2 is a stick axis pair.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CarInput is the raw held state of a player's controls.
type CarInput struct {
	PlayerID              string  `json:"player_id"`
	Sequence              uint64  `json:"sequence"`
	Move                  Vec2    `json:"move"`
	Look                  Vec2    `json:"look"`
	Accelerate            float64 `json:"accelerate"` // 0..1
	Brake                 float64 `json:"brake"`      // 0..1
	Jump                  bool    `json:"jump"`
	Dive                  bool    `json:"dive"`
	FastFall              bool    `json:"fast_fall"`
	Pivot                 bool    `json:"pivot"`
	Boost                 bool    `json:"boost"`
	RecoveryRoll          bool    `json:"recovery_roll"`
	ChangeAirRotationAxis bool    `json:"change_air_rotation_axis"`
	Pulse                 bool    `json:"pulse"`
	Crouch                bool    `json:"crouch"`
	Launch                bool    `json:"launch"`
	ClientMS              int64   `json:"client_ms"`
}

// StaminaStatus is the HUD stamina bar state.
type StaminaStatus string

const (
	StaminaNormal    StaminaStatus = "normal"
	StaminaLow       StaminaStatus = "low"
	StaminaWarning   StaminaStatus = "warning"
	StaminaGassedOut StaminaStatus = "gassed_out"
)

// CarState is the authoritative replicated state for a car.
type CarState struct {
	PlayerID        string        `json:"player_id"`
	DisplayName     string        `json:"display_name"`
	Team            int           `json:"team"`
	Position        Vec3          `json:"position"`
	Rotation        Quat          `json:"rotation"`
	Velocity        Vec3          `json:"velocity"`
	AngularVelocity Vec3          `json:"angular_velocity"`
	Stamina         float64       `json:"stamina"`
	StaminaVisible  float64       `json:"stamina_visible"`
	StaminaStatus   StaminaStatus `json:"stamina_status"`
	GassedOut       bool          `json:"gassed_out"`
	GroundedWheels  int           `json:"grounded_wheels"`
	WheelsGrounded  bool          `json:"wheels_grounded"`
	Boosting        bool          `json:"boosting"`
	Pivoting        bool          `json:"pivoting"`
	Crouching       bool          `json:"crouching"`
	InJumpSquat     bool          `json:"in_jump_squat"`
	SteerDegrees    float64       `json:"steer_degrees"`
	PulseCharge     float64       `json:"pulse_charge"` // 0..1
	LaunchCharge    float64       `json:"launch_charge"`
	LaunchCount     float64       `json:"launch_count"`
	DomeActive      bool          `json:"dome_active"`
	AirAxis         string        `json:"air_axis"`
	InputEnabled    bool          `json:"input_enabled"`
	LastInput       CarInput      `json:"last_input"`
}

// BallState is the authoritative state for the ball.
type BallState struct {
	Position        Vec3    `json:"position"`
	Velocity        Vec3    `json:"velocity"`
	AngularVelocity Vec3    `json:"angular_velocity"`
	Radius          float64 `json:"radius"`
	Grounded        bool    `json:"grounded"`
}

// MatchPhase is the round flow state.
type MatchPhase string

const (
	PhaseWaitingForRound MatchPhase = "waiting_for_round"
	PhasePlayingRound    MatchPhase = "playing_round"
	PhaseGoalCelebration MatchPhase = "goal_celebration"
	PhaseGameOver        MatchPhase = "game_over"
)

// ScoreState tracks goals and timer.
type ScoreState struct {
	Teams           [2]int `json:"teams"`
	TimeRemainingMS int    `json:"time_remaining_ms"`
	Overtime        bool   `json:"overtime"`
}

// MatchState is replicated to all clients.
type MatchState struct {
	MatchID   string              `json:"match_id"`
	Tick      uint64              `json:"tick"`
	CreatedAt time.Time           `json:"created_at"`
	Phase     MatchPhase          `json:"phase"`
	Countdown int                 `json:"countdown,omitempty"`
	Cars      map[string]CarState `json:"cars"`
	Ball      BallState           `json:"ball"`
	Score     ScoreState          `json:"score"`
	Events    []GameplayEvent     `json:"events"`
}

// GameplayEvent tracks state changes worth UI/audio feedback.
type GameplayEvent struct {
	Type       string             `json:"type"` // kickoff|goal|kick|player_collision|pulse|launch|overtime|game_over|player_join|player_leave
	MatchID    string             `json:"match_id,omitempty"`
	PlayerID   string             `json:"player_id,omitempty"`
	Team       int                `json:"team"`
	Tick       uint64             `json:"tick"`
	OccurredMS int64              `json:"occurred_ms"`
	Values     map[string]float64 `json:"values,omitempty"`
}

// ClientEnvelope is sent from client to server.
type ClientEnvelope struct {
	Type        string    `json:"type"` // hello|input|ping
	DisplayName string    `json:"display_name,omitempty"`
	Input       *CarInput `json:"input,omitempty"`
}

// ServerEnvelope is sent from server to client.
type ServerEnvelope struct {
	Type     string      `json:"type"` // welcome|state|pong|error
	PlayerID string      `json:"player_id,omitempty"`
	Tick     uint64      `json:"tick,omitempty"`
	State    *MatchState `json:"state,omitempty"`
	ServerMS int64       `json:"server_ms,omitempty"`
	Message  string      `json:"message,omitempty"`
	AckSeq   uint64      `json:"ack_seq,omitempty"`
}

// TelemetryEvent is the ingest format of the telemetry service.
type TelemetryEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	MatchID   string         `json:"match_id,omitempty"`
	PlayerID  string         `json:"player_id,omitempty"`
	Team      int            `json:"team"`
	Tick      uint64         `json:"tick"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}
