package main

import (
	"fmt"
	"io"
	"time"

	"ksc/internal/buildpipeline"
)

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	for _, st := range []struct {
		stage buildpipeline.Stage
		verb  string
	}{
		{buildpipeline.StageDecode, "decoded"},
		{buildpipeline.StageLower, "lowered"},
		{buildpipeline.StageEmit, "emitted"},
		{buildpipeline.StageRun, "ran"},
	} {
		if timings.Has(st.stage) {
			fmt.Fprintf(out, "%s %.1f ms\n", st.verb, toMillis(timings.Duration(st.stage)))
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
