package config

import (
	"fmt"
	"strings"
)

// RotationAxis selects what horizontal stick input does in the air.
type RotationAxis int

const (
	RotationRoll RotationAxis = iota
	RotationYaw
)

// ParseRotationAxis accepts "roll" or "yaw", case-insensitively.
func ParseRotationAxis(s string) (RotationAxis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roll":
		return RotationRoll, nil
	case "yaw":
		return RotationYaw, nil
	default:
		return 0, fmt.Errorf("unknown rotation axis %q", s)
	}
}

// Alternate returns the other axis.
func (a RotationAxis) Alternate() RotationAxis {
	switch a {
	case RotationRoll:
		return RotationYaw
	case RotationYaw:
		return RotationRoll
	default:
		panic(fmt.Sprintf("unhandled rotation axis %d", int(a)))
	}
}

func (a RotationAxis) String() string {
	switch a {
	case RotationRoll:
		return "roll"
	case RotationYaw:
		return "yaw"
	default:
		return fmt.Sprintf("RotationAxis(%d)", int(a))
	}
}
