package vehicle

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// a power-of-two step keeps per-tick stamina costs exact
const testDT = 1.0 / 64

type fakeEnv struct {
	gravity mgl64.Vec3
	ball    *physics.Body
	overlap []*physics.Body
}

func (e *fakeEnv) Gravity() mgl64.Vec3 { return e.gravity }
func (e *fakeEnv) Ball() *physics.Body { return e.ball }
func (e *fakeEnv) OverlapSphere(mgl64.Vec3, float64, physics.Layer) []*physics.Body {
	return e.overlap
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Match.TickRate = 64
	return cfg
}

func newTestVehicle(t *testing.T, cfg *config.Config, id string, pos mgl64.Vec3, yaw float64) *Vehicle {
	t.Helper()
	v, err := New(id, &cfg.Car, &cfg.Stamina, zerolog.Nop())
	require.NoError(t, err)
	v.SetInputEnabled(true)
	v.Spawn(pos, mathx.YawRotation(yaw))
	return v
}

func clockAt(i int) Clock {
	return Clock{Now: float64(i) * testDT, DeltaTime: testDT}
}

func groundAllWheels(v *Vehicle, at float64) {
	for i := 0; i < WheelCount; i++ {
		v.contacts.RegisterWheel(i, at, mathx.Up, 1)
	}
}
