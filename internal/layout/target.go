package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-unknown-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-unknown-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:   "aarch64-unknown-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// DataLayout renders the target as an LLVM datalayout string.
func (t Target) DataLayout() string {
	switch t.Triple {
	case AArch64LinuxGNU().Triple:
		return "e-m:e-i8:8:32-i16:16:32-i64:64-i128:128-n32:64-S128"
	default:
		return "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
	}
}
