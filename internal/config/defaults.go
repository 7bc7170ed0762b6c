package config

import "kickshift/backend/internal/curve"

// Default returns the stock tuning.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":9003",
			ReplicationRate: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Addr:       ":9004",
			BufferSize: 256,
			Influx: InfluxConfig{
				URL:    "http://localhost:8086",
				Org:    "kickshift",
				Bucket: "gameplay",
			},
		},
		Match: MatchConfig{
			TickRate:                    60,
			MaxPlayers:                  6,
			GameDuration:                300,
			GoalCelebrationDuration:     5,
			CountDownDelay:              2,
			CountDownFrom:               3,
			GameOverCelebrationDuration: 10,
			OvertimeMessageDuration:     2,

			Gravity:         9.81,
			ArenaHalfWidth:  30,
			ArenaHalfLength: 45,
			ArenaHeight:     20,
			WallRestitution: 0.3,
			WallFriction:    0.6,

			GoalHalfWidth: 6,
			GoalHeight:    5,
			GoalDepth:     4,

			GoalExplosionRadius:          1000,
			GoalExplosionForce:           1000,
			GoalExplosionUpwardsModifier: 500,

			BallSpawn:        Vec3{Y: 2},
			SpawnDistance:    20,
			SpawnHeight:      0.5,
			SpawnSlotOffsets: []float64{0, -6, 6},
		},
		Car: CarConfig{
			Chassis: ChassisConfig{
				Mass:              1,
				HalfExtents:       Vec3{X: 0.6, Y: 0.3, Z: 1},
				WheelRadius:       0.3,
				WheelHalfTrack:    0.55,
				WheelHalfBase:     0.75,
				WheelHeight:       -0.2,
				BodyRadius:        0.45,
				KickTriggerRadius: 1.75,
				DomeRadius:        2.5,
				Restitution:       0.1,
				Friction:          0,
			},

			DoubleTapToBoost:         true,
			DoubleTapToBoostMaxDelay: 0.6,
			AutomaticAcceleration:    true,
			DefaultAirRotationAxis:   "yaw",
			DiveOnRelease:            true,

			MaxAngularVelocity:        30,
			DrivingSpeed:              20,
			DrivingAccelerationCurve:  curve.Linear([2]float64{0, 1}, [2]float64{1, 0}, [2]float64{2, -1}),
			MaxDrivingAcceleration:    10,
			WheelTurnFactorBySpeed:    curve.Linear([2]float64{0, 1}, [2]float64{1, 0.5}, [2]float64{2, 0.3}),
			MaxWheelTurnDegrees:       45,
			SidewaysnessVsFriction:    curve.Linear([2]float64{0, 0.4}, [2]float64{1, 0.15}),
			FullSpeedRetainDotProduct: 0.7,
			GroundedFriction:          0.995,
			AirFrictionAtTerminal:     0.9,
			AirTerminalVelocity:       50,

			RegularAngularDrag:            3.5,
			PivotAngularDrag:              10,
			PivotFriction:                 1,
			PivotGroundYawAcceleration:    50,
			Pivot180GroundYawAcceleration: 50,
			EndPivotMaxAngularVelocity:    2,
			PivotForwardRedirectFactor:    1,
			PivotBackwardsRedirectFactor:  0.7,
			PivotKickBallSpinScale:        1,
			PivotKickBallSpeed:            1,

			BigJumpSpeed:                    20,
			SmallJumpSpeed:                  10,
			JumpSquatDuration:               5.5 / 60,
			FastFallMaxSpeed:                30,
			FastFallAcceleration:            50,
			DiveSpeed:                       50,
			DiveOrthogonalVelocityRetention: 0.5,

			UprightRollTorque:                   20,
			UprightDownForce:                    20,
			UprightDownForceUpsideDownThreshold: 0.45,
			UprightDownForceLoweredPointDist:    2,

			AirYawAcceleration:   20,
			AirPitchAcceleration: 20,
			AirRollAcceleration:  20,

			SpeedToBallHitSpeed:         curve.Linear([2]float64{0, 0}, [2]float64{30, 45}),
			NormalizedBallKickOppositeF: 0.5,

			PlayerHitImpulseFactor:         1,
			PlayerHitAddedImpulse:          0.1,
			PlayerHitSlipTimeFactor:        1,
			PlayerHitVulnerabilityConstant: 2,

			BoostWarmUpDuration: 0.4,
			BoostForce:          2000,
			BoostCurve:          curve.Linear01(),

			MinPulseRadius:     3,
			MaxPulseRadius:     5,
			PulseDistanceCurve: curve.ReverseLinear01(),
			MaxPulseCharge:     10,
			MaxPulseBallSpeed:  20,
			PulseChargeCurve:   curve.Linear01(),
			PulseLayers:        []string{"default", "vehicle", "ball"},

			LaunchChargeDuration:   1,
			LaunchMinSpeed:         5,
			LaunchMaxSpeed:         10,
			LaunchMinStaminaCost:   5,
			LaunchMaxStaminaCost:   10,
			LaunchBallLockDistance: 10,
			LaunchDomeMinDuration:  0.5,
			LaunchDomeMaxDuration:  1,
			LaunchMaxCount:         3,
			LaunchRechargeSpeed:    1,
		},
		Stamina: StaminaConfig{
			MaxStamina:                100,
			LowStaminaLevel:           50,
			MinVisibleStamina:         20,
			InitialStamina:            40,
			NormalStaminaRechargeRate: 40,
			LowStaminaRechargeRate:    30,
			BoostStaminaRate:          40,
			PulseStaminaRate:          40,
		},
		Ball: BallConfig{
			Radius:          0.5,
			Scale:           1,
			Mass:            0.05,
			Gravity:         9.8,
			AirSpinScale:    1,
			GroundSpinScale: 1,
			Restitution:     0.7,
			Friction:        0.3,
			AngularDrag:     0.05,
		},
	}
}
