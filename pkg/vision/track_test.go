package vision

import (
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/tracking"
)

func newTestTracker(drive *fakeDrive) *tracker {
	cfg := tracking.DefaultConfig()
	cfg.LostTimeout = 2 * time.Second
	return &tracker{
		pipeline: pipeline{
			deps: Deps{Drive: drive, Emotions: emotion.NewBroadcaster()},
			name: "color-track(red)",
		},
		follower: tracking.NewFollower(cfg),
		subject:  "red",
	}
}

func redBlob() []Detection {
	// Off to the right and small in frame.
	return []Detection{{X: 0.7, Y: 0.4, W: 0.1, H: 0.1, Confidence: 1, Label: "red"}}
}

func TestTrackerSteersWhileLocked(t *testing.T) {
	drive := &fakeDrive{}
	tr := newTestTracker(drive)
	tr.begin()

	tr.follow(redBlob(), time.Now())

	cmds := drive.commands()
	if len(cmds) != 1 {
		t.Fatalf("steering commands = %d, want 1", len(cmds))
	}
	if cmds[0].Omega <= 0 {
		t.Errorf("omega = %v, want clockwise toward a target on the right", cmds[0].Omega)
	}
	if cur := tr.deps.Emotions.Current(); cur.Emotion != emotion.Happy {
		t.Errorf("emotion = %v, want happy on lock", cur.Emotion)
	}
	if got := tr.Status(); got != "locked on red" {
		t.Errorf("status = %q", got)
	}
}

func TestTrackerEmotionOnlyOnEdges(t *testing.T) {
	drive := &fakeDrive{}
	tr := newTestTracker(drive)
	tr.begin()
	t0 := time.Now()

	tr.follow(redBlob(), t0)
	seq := tr.deps.Emotions.Seq()
	tr.follow(redBlob(), t0.Add(33*time.Millisecond))
	tr.follow(redBlob(), t0.Add(66*time.Millisecond))

	if tr.deps.Emotions.Seq() != seq {
		t.Error("steady lock republished the emotion")
	}
}

func TestTrackerCoastsThenGivesUp(t *testing.T) {
	drive := &fakeDrive{}
	tr := newTestTracker(drive)
	tr.begin()
	t0 := time.Now()

	tr.follow(redBlob(), t0)
	tr.follow(nil, t0.Add(500*time.Millisecond))

	if got := tr.Status(); got != "coasting after red" {
		t.Fatalf("status = %q, want coasting", got)
	}
	if len(drive.commands()) != 2 {
		t.Fatalf("coasting frame did not keep steering")
	}

	tr.follow(nil, t0.Add(3*time.Second))

	if drive.clearCount() != 1 {
		t.Errorf("clears = %d, want steering cleared after the loss", drive.clearCount())
	}
	if cur := tr.deps.Emotions.Current(); cur.Emotion != emotion.Confused {
		t.Errorf("emotion = %v, want confused after losing the target", cur.Emotion)
	}
	if got := tr.Status(); got != "lost red" {
		t.Errorf("status = %q", got)
	}
}
