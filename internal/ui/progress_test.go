package ui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"ksc/internal/buildpipeline"
)

func TestProgressFollowsEvents(t *testing.T) {
	m := NewProgressModel("ksc build", []string{"a.kst.json", "b.kst.json"}, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StageLower, Status: buildpipeline.StatusWorking})
	m.applyEvent(buildpipeline.Event{File: "a.kst.json", Stage: buildpipeline.StageLower, Status: buildpipeline.StatusWorking})
	m.applyEvent(buildpipeline.Event{File: "b.kst.json", Stage: buildpipeline.StageDecode, Status: buildpipeline.StatusError, Err: errors.New("unknown node kind")})
	m.applyEvent(buildpipeline.Event{File: "unknown.kst.json", Stage: buildpipeline.StageEmit, Status: buildpipeline.StatusDone})

	if m.phase != "lowering" {
		t.Fatalf("phase = %q", m.phase)
	}
	if m.rows[0].label() != "lowering" || m.rows[1].state != stateFailed {
		t.Fatalf("rows = %+v", m.rows)
	}
	if got := m.percent(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("percent = %v, want 0.8", got)
	}
	view := m.View()
	for _, want := range []string{"ksc build (lowering)", "a.kst.json", "error", "unknown node kind", "1/2 finished, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestProgressAccumulatesElapsed(t *testing.T) {
	m := NewProgressModel("ksc build", []string{"a.kst.json"}, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{File: "a.kst.json", Stage: buildpipeline.StageDecode, Status: buildpipeline.StatusDone, Elapsed: 2 * time.Millisecond})
	m.applyEvent(buildpipeline.Event{File: "a.kst.json", Stage: buildpipeline.StageLower, Status: buildpipeline.StatusDone, Elapsed: 3 * time.Millisecond})
	if m.rows[0].elapsed != 5*time.Millisecond || m.percent() != 1 {
		t.Fatalf("row = %+v, percent = %v", m.rows[0], m.percent())
	}
	if view := m.View(); !strings.Contains(view, "5ms") || !strings.Contains(view, "1/1 finished") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestTruncateWideNames(t *testing.T) {
	if got := truncate("short.kst.json", 40); got != "short.kst.json" {
		t.Fatalf("truncate kept = %q", got)
	}
	if got := truncate("shaders/very_long_name.kst.json", 12); got != "shader..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("網目シェーダ.kst.json", 8); got != "網..." {
		t.Fatalf("wide truncate = %q", got)
	}
}
