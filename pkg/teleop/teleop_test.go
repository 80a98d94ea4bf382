package teleop

import (
	"math"
	"testing"
)

func TestNudgeCoalescesIntoLatestTarget(t *testing.T) {
	c, err := NewController(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	arm := c.Arm()
	id, _ := arm.BodyID(DefaultConfig().Solver.EndEffector)
	p0, _ := arm.BodyPose(id)

	// Two intents before any tick land in one target; there is no queue.
	c.Nudge(0, 1)
	c.Nudge(0, 1)
	c.Step(1.0 / 60)

	st := <-c.States()
	want := p0[0] + 2*DefaultConfig().TranslateStep
	if math.Abs(st.TargetPos[0]-want) > 1e-9 {
		t.Errorf("coalesced target x = %v, want %v", st.TargetPos[0], want)
	}
}

func TestStepPausedDoesNotAdvanceServos(t *testing.T) {
	c, err := NewController(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if !c.TogglePause() {
		t.Fatal("TogglePause should report paused")
	}
	drainLogs(c)

	c.Nudge(2, 1)
	c.Step(1.0 / 60)
	st := <-c.States()
	if !st.Paused {
		t.Error("state should report paused")
	}
}

func TestResetPoseClearsDirty(t *testing.T) {
	c, err := NewController(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	c.Nudge(1, -1)
	c.ResetPose()
	c.Step(1.0 / 60)

	st := <-c.States()
	d := st.TargetPos.Sub(st.EEPos).Norm()
	if d > 1e-9 {
		t.Errorf("after reset the target should sit on the end effector, off by %v", d)
	}
}

func TestRunningLoopTracksSmallNudge(t *testing.T) {
	c, err := NewController(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	var startX float64
	c.Step(1.0 / 60)
	startX = (<-c.States()).EEPos[0]

	c.Nudge(0, 1)
	var last State
	for i := 0; i < 120; i++ {
		c.Step(1.0 / 60)
		select {
		case last = <-c.States():
		default:
		}
	}
	if last.EEPos[0] <= startX {
		t.Errorf("end effector did not move toward the nudged target: %v -> %v",
			startX, last.EEPos[0])
	}
	if math.IsNaN(last.Diag.LastError) {
		t.Error("solver error is NaN")
	}
}

func TestDefaultConfigFileRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	if ConfigExists() {
		t.Fatal("fresh directory should have no config file")
	}

	cfg := DefaultConfig()
	cfg.Hz = 120
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !ConfigExists() {
		t.Fatal("config file should exist after save")
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Hz != 120 {
		t.Errorf("loaded Hz = %d, want 120", loaded.Hz)
	}
}

func drainLogs(c *Controller) {
	for {
		select {
		case <-c.Logs():
		default:
			return
		}
	}
}
