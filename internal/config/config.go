// Package config loads server and gameplay tuning through viper.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"

	"kickshift/backend/internal/curve"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// FileName is the config file looked up in the directories passed to Load.
const FileName = "kickshift"

// Config is the full tuning set. It is read-only once a match starts.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Match     MatchConfig     `mapstructure:"match"`
	Car       CarConfig       `mapstructure:"car"`
	Stamina   StaminaConfig   `mapstructure:"stamina"`
	Ball      BallConfig      `mapstructure:"ball"`
}

type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	MatchID         string `mapstructure:"matchID"`
	ReplicationRate int    `mapstructure:"replicationRate"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	GraylogAddress string `mapstructure:"graylogAddress"`
}

type TelemetryConfig struct {
	Addr       string       `mapstructure:"addr"`
	DSN        string       `mapstructure:"dsn"`
	SQLitePath string       `mapstructure:"sqlitePath"`
	BufferSize int          `mapstructure:"bufferSize"`
	Influx     InfluxConfig `mapstructure:"influx"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// Vec3 is a plain vector for config files.
type Vec3 struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

func (v Vec3) Vec() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// MatchConfig drives the round flow and arena layout. Durations are seconds.
type MatchConfig struct {
	TickRate                    int     `mapstructure:"tickRate"`
	MaxPlayers                  int     `mapstructure:"maxPlayers"`
	GameDuration                float64 `mapstructure:"gameDuration"`
	GoalCelebrationDuration     float64 `mapstructure:"goalCelebrationDuration"`
	CountDownDelay              float64 `mapstructure:"countDownDelay"`
	CountDownFrom               int     `mapstructure:"countDownFrom"`
	GameOverCelebrationDuration float64 `mapstructure:"gameOverCelebrationDuration"`
	OvertimeMessageDuration     float64 `mapstructure:"overtimeMessageDuration"`
	SkipCountdown               bool    `mapstructure:"skipCountdown"`

	Gravity         float64 `mapstructure:"gravity"`
	ArenaHalfWidth  float64 `mapstructure:"arenaHalfWidth"`
	ArenaHalfLength float64 `mapstructure:"arenaHalfLength"`
	ArenaHeight     float64 `mapstructure:"arenaHeight"`
	WallRestitution float64 `mapstructure:"wallRestitution"`
	WallFriction    float64 `mapstructure:"wallFriction"`

	GoalHalfWidth float64 `mapstructure:"goalHalfWidth"`
	GoalHeight    float64 `mapstructure:"goalHeight"`
	GoalDepth     float64 `mapstructure:"goalDepth"`

	GoalExplosionRadius          float64 `mapstructure:"goalExplosionRadius"`
	GoalExplosionForce           float64 `mapstructure:"goalExplosionForce"`
	GoalExplosionUpwardsModifier float64 `mapstructure:"goalExplosionUpwardsModifier"`

	BallSpawn        Vec3      `mapstructure:"ballSpawn"`
	SpawnDistance    float64   `mapstructure:"spawnDistance"`
	SpawnHeight      float64   `mapstructure:"spawnHeight"`
	SpawnSlotOffsets []float64 `mapstructure:"spawnSlotOffsets"`
}

// TickDuration is the fixed simulation step in seconds.
func (m MatchConfig) TickDuration() float64 {
	return 1 / float64(m.TickRate)
}

// ChassisConfig is the collision and mass layout of a vehicle body.
type ChassisConfig struct {
	Mass              float64 `mapstructure:"mass"`
	HalfExtents       Vec3    `mapstructure:"halfExtents"`
	WheelRadius       float64 `mapstructure:"wheelRadius"`
	WheelHalfTrack    float64 `mapstructure:"wheelHalfTrack"`
	WheelHalfBase     float64 `mapstructure:"wheelHalfBase"`
	WheelHeight       float64 `mapstructure:"wheelHeight"`
	BodyRadius        float64 `mapstructure:"bodyRadius"`
	KickTriggerRadius float64 `mapstructure:"kickTriggerRadius"`
	DomeRadius        float64 `mapstructure:"domeRadius"`
	Restitution       float64 `mapstructure:"restitution"`
	Friction          float64 `mapstructure:"friction"`
}

// CarConfig holds every vehicle tuning value.
type CarConfig struct {
	Chassis ChassisConfig `mapstructure:"chassis"`

	// controls
	AllowBoostWhilePivoting  bool    `mapstructure:"allowBoostWhilePivoting"`
	DoubleTapToBoost         bool    `mapstructure:"doubleTapToBoost"`
	DoubleTapToBoostMaxDelay float64 `mapstructure:"doubleTapToBoostMaxDelay"`
	AutomaticRecoveryRoll    bool    `mapstructure:"automaticRecoveryRoll"`
	AutomaticAcceleration    bool    `mapstructure:"automaticAcceleration"`
	DefaultAirRotationAxis   string  `mapstructure:"defaultAirRotationAxis"`
	DiveOnRelease            bool    `mapstructure:"diveOnRelease"`

	MaxAngularVelocity        float64     `mapstructure:"maxAngularVelocity"`
	DrivingSpeed              float64     `mapstructure:"drivingSpeed"`
	DrivingAccelerationCurve  curve.Curve `mapstructure:"drivingAccelerationCurve"`
	MaxDrivingAcceleration    float64     `mapstructure:"maxDrivingAcceleration"`
	WheelTurnFactorBySpeed    curve.Curve `mapstructure:"wheelTurnFactorBySpeed"`
	MaxWheelTurnDegrees       float64     `mapstructure:"maxWheelTurnDegrees"`
	SidewaysnessVsFriction    curve.Curve `mapstructure:"sidewaysnessVsFriction"`
	FullSpeedRetainDotProduct float64     `mapstructure:"fullSpeedRetainDotProduct"`
	GroundedFriction          float64     `mapstructure:"groundedFriction"`
	AirFrictionAtTerminal     float64     `mapstructure:"airFrictionAtTerminalVelocity"`
	AirTerminalVelocity       float64     `mapstructure:"airTerminalVelocity"`

	RegularAngularDrag            float64 `mapstructure:"regularAngularDrag"`
	PivotAngularDrag              float64 `mapstructure:"pivotAngularDrag"`
	PivotFriction                 float64 `mapstructure:"pivotFriction"`
	PivotGroundYawAcceleration    float64 `mapstructure:"pivotGroundYawAcceleration"`
	Pivot180GroundYawAcceleration float64 `mapstructure:"pivot180GroundYawAcceleration"`
	EndPivotMaxAngularVelocity    float64 `mapstructure:"endPivotMaxAngularVelocity"`
	PivotForwardRedirectFactor    float64 `mapstructure:"pivotForwardRedirectFactor"`
	PivotBackwardsRedirectFactor  float64 `mapstructure:"pivotBackwardsRedirectFactor"`
	PivotKickBallSpinScale        float64 `mapstructure:"pivotKickBallSpinScale"`
	PivotKickBallSpeed            float64 `mapstructure:"pivotKickBallSpeed"`

	BigJumpSpeed                    float64 `mapstructure:"bigJumpSpeed"`
	SmallJumpSpeed                  float64 `mapstructure:"smallJumpSpeed"`
	JumpSquatDuration               float64 `mapstructure:"jumpSquatDuration"`
	FastFallMaxSpeed                float64 `mapstructure:"fastFallMaxSpeed"`
	FastFallAcceleration            float64 `mapstructure:"fastFallAcceleration"`
	DiveSpeed                       float64 `mapstructure:"diveSpeed"`
	DiveOrthogonalVelocityRetention float64 `mapstructure:"diveOrthogonalVelocityRetention"`

	UprightRollTorque                   float64 `mapstructure:"uprightRollTorque"`
	UprightDownForce                    float64 `mapstructure:"uprightDownForce"`
	UprightDownForceUpsideDownThreshold float64 `mapstructure:"uprightDownForceUpsideDownThreshold"`
	UprightDownForceLoweredPointDist    float64 `mapstructure:"uprightDownForceLoweredPointDistance"`

	AirYawAcceleration   float64 `mapstructure:"airYawAcceleration"`
	AirPitchAcceleration float64 `mapstructure:"airPitchAcceleration"`
	AirRollAcceleration  float64 `mapstructure:"airRollAcceleration"`

	SpeedToBallHitSpeed         curve.Curve `mapstructure:"speedToBallHitSpeed"`
	NormalizedBallKickOppositeF float64     `mapstructure:"normalizedBallKickOppositeForce"`

	PlayerHitImpulseFactor         float64 `mapstructure:"playerHitImpulseFactor"`
	PlayerHitAddedImpulse          float64 `mapstructure:"playerHitAddedImpulse"`
	PlayerHitSlipTimeFactor        float64 `mapstructure:"playerHitSlipTimeFactor"`
	PlayerHitVulnerabilityConstant float64 `mapstructure:"playerHitVulnerabilityConstant"`

	BoostWarmUpDuration float64     `mapstructure:"boostWarmUpDuration"`
	BoostForce          float64     `mapstructure:"boostForce"`
	BoostCurve          curve.Curve `mapstructure:"boostCurve"`

	MinPulseRadius     float64     `mapstructure:"minPulseRadius"`
	MaxPulseRadius     float64     `mapstructure:"maxPulseRadius"`
	PulseDistanceCurve curve.Curve `mapstructure:"pulseDistanceCurve"`
	MaxPulseCharge     float64     `mapstructure:"maxPulseCharge"`
	MaxPulseBallSpeed  float64     `mapstructure:"maxPulseBallSpeed"`
	PulseChargeCurve   curve.Curve `mapstructure:"pulseChargeCurve"`
	PulseLayers        []string    `mapstructure:"pulseLayers"`

	LaunchChargeDuration   float64 `mapstructure:"launchChargeDuration"`
	LaunchMinSpeed         float64 `mapstructure:"launchMinSpeed"`
	LaunchMaxSpeed         float64 `mapstructure:"launchMaxSpeed"`
	LaunchMinStaminaCost   float64 `mapstructure:"launchMinStaminaCost"`
	LaunchMaxStaminaCost   float64 `mapstructure:"launchMaxStaminaCost"`
	LaunchBallLockDistance float64 `mapstructure:"launchBallLockDistance"`
	LaunchDomeMinDuration  float64 `mapstructure:"launchDomeMinDuration"`
	LaunchDomeMaxDuration  float64 `mapstructure:"launchDomeMaxDuration"`
	LaunchMaxCount         float64 `mapstructure:"launchMaxCount"`
	LaunchRechargeSpeed    float64 `mapstructure:"launchRechargeSpeed"`
}

// AirRotationAxis is the parsed DefaultAirRotationAxis. Load validates it, so
// an unknown value here is a programming error.
func (c *CarConfig) AirRotationAxis() RotationAxis {
	axis, err := ParseRotationAxis(c.DefaultAirRotationAxis)
	if err != nil {
		panic(err)
	}
	return axis
}

type StaminaConfig struct {
	MaxStamina                float64 `mapstructure:"maxStamina"`
	LowStaminaLevel           float64 `mapstructure:"lowStaminaLevel"`
	MinVisibleStamina         float64 `mapstructure:"minVisibleStamina"`
	InitialStamina            float64 `mapstructure:"initialStamina"`
	NormalStaminaRechargeRate float64 `mapstructure:"normalStaminaRechargeRate"`
	LowStaminaRechargeRate    float64 `mapstructure:"lowStaminaRechargeRate"`
	BoostStaminaRate          float64 `mapstructure:"boostStaminaRate"`
	PulseStaminaRate          float64 `mapstructure:"pulseStaminaRate"`
}

type BallConfig struct {
	Radius          float64 `mapstructure:"radius"`
	Scale           float64 `mapstructure:"scale"`
	Mass            float64 `mapstructure:"mass"`
	Gravity         float64 `mapstructure:"gravity"`
	AirSpinScale    float64 `mapstructure:"airSpinScale"`
	GroundSpinScale float64 `mapstructure:"groundSpinScale"`
	Restitution     float64 `mapstructure:"restitution"`
	Friction        float64 `mapstructure:"friction"`
	AngularDrag     float64 `mapstructure:"angularDrag"`
}

// Load reads defaults, then an optional kickshift.{json,yaml} from the given
// directories, then KICKSHIFT_* environment overrides.
func Load(dirs ...string) (*Config, error) {
	return LoadWith(viper.New(), dirs...)
}

// LoadWith is Load on a caller-supplied viper instance.
func LoadWith(v *viper.Viper, dirs ...string) (*Config, error) {
	registerDefaults(v, "", reflect.ValueOf(*Default()))

	v.SetEnvPrefix("KICKSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// registerDefaults walks a config struct and sets one viper default per leaf
// so that files and environment variables override individual values. Slices
// are leaves, which keeps curve keys replaced as a whole.
func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			registerDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

// Validate reports the first inconsistent value, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Match.TickRate <= 0 {
		return fail("match.tickRate must be positive, got %d", c.Match.TickRate)
	}
	if c.Server.ReplicationRate <= 0 {
		return fail("server.replicationRate must be positive, got %d", c.Server.ReplicationRate)
	}
	if c.Match.MaxPlayers < 1 {
		return fail("match.maxPlayers must be at least 1")
	}
	if c.Match.GameDuration <= 0 {
		return fail("match.gameDuration must be positive")
	}
	if len(c.Match.SpawnSlotOffsets) == 0 {
		return fail("match.spawnSlotOffsets must not be empty")
	}
	s := c.Stamina
	if s.MaxStamina <= 0 {
		return fail("stamina.maxStamina must be positive")
	}
	if s.LowStaminaLevel < 0 || s.LowStaminaLevel > s.MaxStamina {
		return fail("stamina.lowStaminaLevel must be within [0, maxStamina]")
	}
	if s.InitialStamina < 0 || s.InitialStamina > s.MaxStamina {
		return fail("stamina.initialStamina must be within [0, maxStamina]")
	}
	if s.MinVisibleStamina < 0 || s.MinVisibleStamina >= s.MaxStamina {
		return fail("stamina.minVisibleStamina must be within [0, maxStamina)")
	}
	car := c.Car
	if _, err := ParseRotationAxis(car.DefaultAirRotationAxis); err != nil {
		return fail("car.defaultAirRotationAxis: %v", err)
	}
	if car.MinPulseRadius >= car.MaxPulseRadius {
		return fail("car.minPulseRadius must be below car.maxPulseRadius")
	}
	if car.MaxPulseCharge <= 0 {
		return fail("car.maxPulseCharge must be positive")
	}
	for _, name := range car.PulseLayers {
		if !knownLayer(name) {
			return fail("car.pulseLayers: unknown layer %q", name)
		}
	}
	if car.LaunchMaxCount < 1 {
		return fail("car.launchMaxCount must be at least 1")
	}
	if car.LaunchChargeDuration <= 0 {
		return fail("car.launchChargeDuration must be positive")
	}
	if car.DrivingSpeed <= 0 {
		return fail("car.drivingSpeed must be positive")
	}
	if car.BoostWarmUpDuration <= 0 {
		return fail("car.boostWarmUpDuration must be positive")
	}
	if car.Chassis.Mass <= 0 || c.Ball.Mass <= 0 {
		return fail("masses must be positive")
	}
	if c.Ball.Radius <= 0 || c.Ball.Scale <= 0 {
		return fail("ball.radius and ball.scale must be positive")
	}
	return nil
}

func knownLayer(name string) bool {
	switch name {
	case "default", "environment", "vehicle", "ball":
		return true
	}
	return false
}
