package kinematics

import (
	"math"
	"testing"

	"github.com/hmaier/armik/pkg/spatial"
)

func TestSixDOFHomePose(t *testing.T) {
	arm := NewSixDOF()

	eeID, ok := arm.BodyID("gripper_frame")
	if !ok {
		t.Fatal("gripper_frame body not found")
	}
	pos, rot := arm.BodyPose(eeID)

	// The home pitch angles cancel, so orientation is identity.
	if d := rot.Mul(spatial.QuatIdentity().Conj()).ToAxisAngle().Norm(); d > 1e-9 {
		t.Errorf("home orientation differs from identity by %v rad", d)
	}

	// In front of the base, above the ground.
	if pos[0] < 0.3 || pos[2] < 0.05 {
		t.Errorf("implausible home position %v", pos)
	}
	if math.Abs(pos[1]) > 1e-9 {
		t.Errorf("home position off the x-z plane: %v", pos)
	}
}

func TestForwardHingeColumnMotion(t *testing.T) {
	arm := NewSixDOF()
	eeID, _ := arm.BodyID("gripper_frame")
	before, _ := arm.BodyPose(eeID)

	// Rotating the base yaw moves the end effector in y.
	if err := arm.SetJointPosition("shoulder_pan", 0.3); err != nil {
		t.Fatal(err)
	}
	after, _ := arm.BodyPose(eeID)
	if after[1] <= before[1] {
		t.Errorf("positive base yaw should increase y: before %v after %v", before, after)
	}
}

func TestStepTracksCommand(t *testing.T) {
	arm := NewSixDOF(WithServoRate(10))
	j, _ := arm.JointByName("elbow_flex")
	act := actuatorFor(t, arm, "elbow_flex")

	arm.SetCommand(act.Channel, j.Lo+0.1)
	for i := 0; i < 200; i++ {
		arm.Step(0.01)
	}
	if got := arm.Coords()[j.Addr]; math.Abs(got-(j.Lo+0.1)) > 1e-6 {
		t.Errorf("servo did not reach command: got %v want %v", got, j.Lo+0.1)
	}
}

func TestStepClampsCommandToJointRange(t *testing.T) {
	arm := NewSixDOF(WithServoRate(10))
	j, _ := arm.JointByName("wrist_roll")
	act := actuatorFor(t, arm, "wrist_roll")

	arm.SetCommand(act.Channel, j.Hi+5)
	for i := 0; i < 500; i++ {
		arm.Step(0.01)
	}
	if got := arm.Coords()[j.Addr]; got > j.Hi+1e-9 {
		t.Errorf("joint exceeded its range: %v > %v", got, j.Hi)
	}
}

func TestBlockFreezesJoint(t *testing.T) {
	arm := NewSixDOF()
	j, _ := arm.JointByName("shoulder_lift")
	act := actuatorFor(t, arm, "shoulder_lift")
	start := arm.Coords()[j.Addr]

	arm.Block("shoulder_lift")
	arm.SetCommand(act.Channel, start+0.5)
	for i := 0; i < 100; i++ {
		arm.Step(0.01)
	}
	if got := arm.Coords()[j.Addr]; got != start {
		t.Errorf("blocked joint moved from %v to %v", start, got)
	}

	arm.Unblock("shoulder_lift")
	for i := 0; i < 100; i++ {
		arm.Step(0.01)
	}
	if got := arm.Coords()[j.Addr]; math.Abs(got-(start+0.5)) > 1e-6 {
		t.Errorf("unblocked joint did not resume tracking: %v", got)
	}
}

func TestProxyBodyPoseInjection(t *testing.T) {
	arm := NewSixDOF(WithProxy("target_proxy"))
	id, ok := arm.BodyID("target_proxy")
	if !ok {
		t.Fatal("proxy body not found")
	}

	want := spatial.Vec3{0.1, 0.2, 0.3}
	rot := spatial.FromAxisAngle(spatial.Vec3{0, 0, 1}, 0.5)
	if err := arm.SetBodyPose(id, want, rot); err != nil {
		t.Fatal(err)
	}
	got, _ := arm.BodyPose(id)
	if got != want {
		t.Errorf("proxy pose = %v, want %v", got, want)
	}

	// Chain bodies reject direct writes.
	eeID, _ := arm.BodyID("gripper_frame")
	if err := arm.SetBodyPose(eeID, want, rot); err == nil {
		t.Error("SetBodyPose on a chain body should fail")
	}
}

func actuatorFor(t *testing.T, arm *SimArm, joint string) Actuator {
	t.Helper()
	for _, act := range arm.Actuators() {
		if act.Joint == joint {
			return act
		}
	}
	t.Fatalf("no actuator for joint %q", joint)
	return Actuator{}
}
