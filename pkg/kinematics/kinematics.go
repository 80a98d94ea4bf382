// Package kinematics defines the kinematic model interface consumed by the
// IK solver, and a simulated serial-chain arm implementing it.
package kinematics

import (
	"github.com/hmaier/armik/pkg/spatial"
)

// JointKind identifies how a joint maps generalized coordinates to motion.
type JointKind int

const (
	KindHinge JointKind = iota // 1 coord, rotation about a fixed axis
	KindSlide                  // 1 coord, translation along a fixed axis
	KindBall                   // 3 coords, rotation vector
	KindFree                   // 7 coords, position + quaternion
)

func (k JointKind) String() string {
	switch k {
	case KindHinge:
		return "hinge"
	case KindSlide:
		return "slide"
	case KindBall:
		return "ball"
	case KindFree:
		return "free"
	}
	return "unknown"
}

// NumCoords returns how many generalized coordinates the kind occupies.
func (k JointKind) NumCoords() int {
	switch k {
	case KindBall:
		return 3
	case KindFree:
		return 7
	}
	return 1
}

// Joint describes one joint of the active model.
type Joint struct {
	Name    string
	Kind    JointKind
	Addr    int // index of the joint's first generalized coordinate
	Lo, Hi  float64
	Limited bool
}

// Actuator describes one command channel of the active model.
type Actuator struct {
	Name    string
	Channel int
	Lo, Hi  float64 // command range
	Joint   string  // name of the actuated joint
}

// Model is the kinematic provider the solver runs against. The coordinate
// buffer returned by Coords is shared, live state: rendering and physics
// stepping read it within the same tick, so any perturbation must be undone
// before control returns to the host.
type Model interface {
	// Forward re-evaluates forward kinematics from the current
	// generalized-coordinate buffer.
	Forward()

	// Coords returns the shared generalized-coordinate buffer.
	Coords() []float64

	// BodyID resolves a body name to an index usable with BodyPose.
	BodyID(name string) (int, bool)

	// BodyPose returns the world pose of a body after the last Forward.
	BodyPose(id int) (spatial.Vec3, spatial.Quat)

	// SetBodyPose writes the pose of a free-floating body directly.
	// Returns an error for bodies that are part of a joint chain.
	SetBodyPose(id int, pos spatial.Vec3, rot spatial.Quat) error

	// Joints lists all joints; JointByName resolves one by name.
	Joints() []Joint
	JointByName(name string) (Joint, bool)

	// Actuators lists all command channels.
	Actuators() []Actuator

	// Command and SetCommand read and write one actuator command channel.
	Command(channel int) float64
	SetCommand(channel int, v float64)
}
