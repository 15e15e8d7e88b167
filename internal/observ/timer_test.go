package observ

import (
	"strings"
	"testing"
)

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	decode := tm.Begin("decode")
	tm.End(decode, "2 files")
	lower := tm.Begin("lower")
	tm.End(lower, "")
	tm.End(7, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Note != "2 files" {
		t.Fatalf("report = %+v", r)
	}
	s := tm.Summary()
	for _, want := range []string{"decode", "// 2 files", "lower", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
	if got := NewTimer().Report(); len(got.Phases) != 0 || got.TotalMS != 0 {
		t.Fatalf("empty report = %+v", got)
	}
}
