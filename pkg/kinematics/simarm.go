package kinematics

import (
	"fmt"

	"github.com/hmaier/armik/pkg/spatial"
)

// Link describes one element of a simulated serial chain: a fixed offset
// from the parent frame followed by a joint.
type Link struct {
	Name    string
	Kind    JointKind
	Axis    spatial.Vec3
	Offset  spatial.Vec3 // translation from parent frame, in parent frame
	Lo, Hi  float64
	Limited bool

	// ActName, when non-empty, creates an actuator channel for this link.
	// ActLo/ActHi default to the joint range when both are zero.
	ActName      string
	ActLo, ActHi float64
}

type bodyPose struct {
	pos spatial.Vec3
	rot spatial.Quat
}

// SimArm is a simulated serial-chain arm. It owns the shared
// generalized-coordinate buffer, an actuator command array, and optionally a
// free-floating proxy body for direct pose injection. Positions track
// commands with first-order rate-limited servo dynamics in Step.
type SimArm struct {
	links    []Link
	eeName   string
	eeOffset spatial.Vec3

	coords  []float64
	cmds    []float64
	joints  []Joint
	acts    []Actuator
	bodyIDs map[string]int
	poses   []bodyPose

	blocked map[int]bool // coord addr -> measured position frozen
	maxVel  float64      // rad/s (or m/s) servo tracking rate

	proxyID int // body index of the proxy, -1 when absent
}

// ArmOption configures a SimArm at construction.
type ArmOption func(*SimArm)

// WithProxy adds a free-floating proxy body with the given name, used by the
// direct pose-injection mode.
func WithProxy(name string) ArmOption {
	return func(a *SimArm) {
		a.proxyID = len(a.poses)
		a.bodyIDs[name] = a.proxyID
		a.poses = append(a.poses, bodyPose{rot: spatial.QuatIdentity()})
	}
}

// WithServoRate overrides the servo tracking rate used by Step.
func WithServoRate(maxVel float64) ArmOption {
	return func(a *SimArm) { a.maxVel = maxVel }
}

// NewSimArm builds a simulated arm from a link table. The end-effector body
// eeName sits at eeOffset from the last link's frame.
func NewSimArm(links []Link, eeName string, eeOffset spatial.Vec3, opts ...ArmOption) *SimArm {
	a := &SimArm{
		links:    links,
		eeName:   eeName,
		eeOffset: eeOffset,
		bodyIDs:  make(map[string]int, len(links)+2),
		blocked:  make(map[int]bool),
		maxVel:   4.0,
		proxyID:  -1,
	}

	addr := 0
	for i, l := range links {
		a.bodyIDs[l.Name] = i
		a.poses = append(a.poses, bodyPose{rot: spatial.QuatIdentity()})
		a.joints = append(a.joints, Joint{
			Name:    l.Name,
			Kind:    l.Kind,
			Addr:    addr,
			Lo:      l.Lo,
			Hi:      l.Hi,
			Limited: l.Limited,
		})
		addr += l.Kind.NumCoords()

		if l.ActName != "" && (l.Kind == KindHinge || l.Kind == KindSlide) {
			lo, hi := l.ActLo, l.ActHi
			if lo == 0 && hi == 0 {
				lo, hi = l.Lo, l.Hi
			}
			a.acts = append(a.acts, Actuator{
				Name:    l.ActName,
				Channel: len(a.acts),
				Lo:      lo,
				Hi:      hi,
				Joint:   l.Name,
			})
		}
	}
	a.coords = make([]float64, addr)
	a.cmds = make([]float64, len(a.acts))

	// End-effector body comes after the link bodies.
	a.bodyIDs[eeName] = len(a.poses)
	a.poses = append(a.poses, bodyPose{rot: spatial.QuatIdentity()})

	for _, opt := range opts {
		opt(a)
	}
	a.Forward()
	return a
}

// Forward implements Model.
func (a *SimArm) Forward() {
	pos := spatial.Vec3{}
	rot := spatial.QuatIdentity()
	for i, l := range a.links {
		pos = pos.Add(rot.RotateVec(l.Offset))
		j := a.joints[i]
		switch l.Kind {
		case KindHinge:
			rot = rot.Mul(spatial.FromAxisAngle(l.Axis, a.coords[j.Addr]))
		case KindSlide:
			pos = pos.Add(rot.RotateVec(l.Axis.Scale(a.coords[j.Addr])))
		case KindBall:
			rv := spatial.Vec3{a.coords[j.Addr], a.coords[j.Addr+1], a.coords[j.Addr+2]}
			rot = rot.Mul(spatial.FromAxisAngle(rv, rv.Norm()))
		}
		a.poses[i] = bodyPose{pos: pos, rot: rot}
	}
	eeID := a.bodyIDs[a.eeName]
	a.poses[eeID] = bodyPose{pos: pos.Add(rot.RotateVec(a.eeOffset)), rot: rot}
}

// Coords implements Model. The returned slice is the live buffer.
func (a *SimArm) Coords() []float64 { return a.coords }

// BodyID implements Model.
func (a *SimArm) BodyID(name string) (int, bool) {
	id, ok := a.bodyIDs[name]
	return id, ok
}

// BodyPose implements Model.
func (a *SimArm) BodyPose(id int) (spatial.Vec3, spatial.Quat) {
	p := a.poses[id]
	return p.pos, p.rot
}

// SetBodyPose implements Model. Only the proxy body accepts direct writes.
func (a *SimArm) SetBodyPose(id int, pos spatial.Vec3, rot spatial.Quat) error {
	if id != a.proxyID || a.proxyID < 0 {
		return fmt.Errorf("body %d is not a free-floating body", id)
	}
	a.poses[id] = bodyPose{pos: pos, rot: rot.Normalize()}
	return nil
}

// Joints implements Model.
func (a *SimArm) Joints() []Joint { return a.joints }

// JointByName implements Model.
func (a *SimArm) JointByName(name string) (Joint, bool) {
	for _, j := range a.joints {
		if j.Name == name {
			return j, true
		}
	}
	return Joint{}, false
}

// Actuators implements Model.
func (a *SimArm) Actuators() []Actuator { return a.acts }

// Command implements Model.
func (a *SimArm) Command(channel int) float64 { return a.cmds[channel] }

// SetCommand implements Model.
func (a *SimArm) SetCommand(channel int, v float64) { a.cmds[channel] = v }

// Step advances the servo dynamics by dt: each actuated coordinate moves
// toward its commanded value at the servo rate, unless blocked. This is the
// host's time-stepping; the solver never calls it.
func (a *SimArm) Step(dt float64) {
	for _, act := range a.acts {
		j, _ := a.JointByName(act.Joint)
		if a.blocked[j.Addr] {
			continue
		}
		target := a.cmds[act.Channel]
		if j.Limited {
			target = spatial.Clamp(target, j.Lo, j.Hi)
		}
		dq := spatial.Clamp(target-a.coords[j.Addr], -a.maxVel*dt, a.maxVel*dt)
		a.coords[j.Addr] += dq
	}
	a.Forward()
}

// Block freezes the measured position of the named joints, emulating a
// contact that the servo cannot push through. Unblock releases them.
func (a *SimArm) Block(names ...string) {
	for _, n := range names {
		if j, ok := a.JointByName(n); ok {
			a.blocked[j.Addr] = true
		}
	}
}

// Unblock releases previously blocked joints.
func (a *SimArm) Unblock(names ...string) {
	for _, n := range names {
		if j, ok := a.JointByName(n); ok {
			delete(a.blocked, j.Addr)
		}
	}
}

// SetJointPosition writes one joint coordinate and its actuator command, then
// re-runs forward kinematics. Used to pose the arm before a session.
func (a *SimArm) SetJointPosition(name string, q float64) error {
	j, ok := a.JointByName(name)
	if !ok {
		return fmt.Errorf("unknown joint %q", name)
	}
	a.coords[j.Addr] = q
	for _, act := range a.acts {
		if act.Joint == name {
			a.cmds[act.Channel] = q
		}
	}
	a.Forward()
	return nil
}

// SixDOFHome is the bent starting configuration used by NewSixDOF. The pitch
// angles cancel so the end-effector starts at identity orientation, away
// from the fully-stretched singular configuration.
var SixDOFHome = map[string]float64{
	"shoulder_pan":  0,
	"shoulder_lift": 0.4,
	"elbow_flex":    -0.8,
	"wrist_flex":    0.4,
	"wrist_yaw":     0,
	"wrist_roll":    0,
}

// NewSixDOF builds the stock six-revolute simulated arm. Actuator channel
// names deliberately mix exact, prefixed and suffixed forms of their joint
// names to mirror real model name tables.
func NewSixDOF(opts ...ArmOption) *SimArm {
	links := []Link{
		{Name: "shoulder_pan", Kind: KindHinge, Axis: spatial.Vec3{0, 0, 1}, Offset: spatial.Vec3{0, 0, 0.1},
			Lo: -3.0, Hi: 3.0, Limited: true, ActName: "shoulder_pan"},
		{Name: "shoulder_lift", Kind: KindHinge, Axis: spatial.Vec3{0, 1, 0}, Offset: spatial.Vec3{0, 0, 0.1},
			Lo: -1.8, Hi: 1.8, Limited: true, ActName: "act_shoulder_lift"},
		{Name: "elbow_flex", Kind: KindHinge, Axis: spatial.Vec3{0, 1, 0}, Offset: spatial.Vec3{0.25, 0, 0},
			Lo: -2.2, Hi: 2.2, Limited: true, ActName: "elbow_flex"},
		{Name: "wrist_flex", Kind: KindHinge, Axis: spatial.Vec3{0, 1, 0}, Offset: spatial.Vec3{0.25, 0, 0},
			Lo: -1.8, Hi: 1.8, Limited: true, ActName: "wrist_flex_servo"},
		{Name: "wrist_yaw", Kind: KindHinge, Axis: spatial.Vec3{0, 0, 1}, Offset: spatial.Vec3{0.08, 0, 0},
			Lo: -2.0, Hi: 2.0, Limited: true, ActName: "act_wrist_yaw"},
		{Name: "wrist_roll", Kind: KindHinge, Axis: spatial.Vec3{1, 0, 0}, Offset: spatial.Vec3{0.06, 0, 0},
			Lo: -2.9, Hi: 2.9, Limited: true, ActName: "wrist_roll"},
	}
	a := NewSimArm(links, "gripper_frame", spatial.Vec3{0.08, 0, 0}, opts...)
	for name, q := range SixDOFHome {
		_ = a.SetJointPosition(name, q)
	}
	return a
}
