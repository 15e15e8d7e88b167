package backend

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"ksc/internal/layout"
)

// Target is the code generation target: ABI properties plus the host
// features compiled code may assume.
type Target struct {
	layout.Target

	Features  []string
	SIMDWidth int // float lanes per hardware vector
}

// HostTarget describes the machine the process runs on.
func HostTarget() Target {
	t := Target{Target: layout.X86_64LinuxGNU(), SIMDWidth: 4}
	switch runtime.GOARCH {
	case "arm64":
		t.Target = layout.AArch64LinuxGNU()
		if cpu.ARM64.HasASIMD {
			t.Features = append(t.Features, "neon")
		}
	default:
		if cpu.X86.HasSSE41 {
			t.Features = append(t.Features, "sse4.1")
		}
		if cpu.X86.HasAVX {
			t.Features = append(t.Features, "avx")
			t.SIMDWidth = 8
		}
		if cpu.X86.HasAVX2 {
			t.Features = append(t.Features, "avx2")
		}
		if cpu.X86.HasFMA {
			t.Features = append(t.Features, "fma")
		}
	}
	return t
}

// TargetByTriple returns the target for a known triple with host features
// cleared, or false for an unknown triple.
func TargetByTriple(triple string) (Target, bool) {
	for _, lt := range []layout.Target{layout.X86_64LinuxGNU(), layout.AArch64LinuxGNU()} {
		if lt.Triple == triple {
			return Target{Target: lt, SIMDWidth: 4}, true
		}
	}
	return Target{}, false
}
