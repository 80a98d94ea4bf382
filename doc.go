// Package armik provides keyboard teleoperation of a simulated robot arm
// through a numeric inverse-kinematics solver.
//
// A human issues discrete translation/rotation intents; the solver converts
// the desired end-effector pose into joint actuator commands at interactive
// rates using damped least squares over a finite-difference Jacobian, with a
// joint-limit soft barrier, a Jacobian-transpose fallback near singularities,
// and anti-windup command integration.
//
// # Installation
//
//	go install github.com/hmaier/armik/cmd/armik@latest
//
// # Usage
//
// Start interactive teleoperation of the built-in six-DOF arm:
//
//	armik teleoperate
//
// Run the headless convergence benchmarks (writes PNG plots):
//
//	armik bench
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armik: CLI with teleoperate, bench and demo commands
//   - pkg/spatial: Vector and quaternion math
//   - pkg/kinematics: Kinematic model interfaces and the simulated arm
//   - pkg/ik: The inverse-kinematics solver core
//   - pkg/teleop: Teleoperation controller
package armik
