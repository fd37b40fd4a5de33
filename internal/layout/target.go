package layout

import "fmt"

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// TargetForPtrSize returns a generic target with the given pointer width.
// Only 4 and 8 byte pointers are supported.
func TargetForPtrSize(size int) (Target, error) {
	switch size {
	case 8:
		return X86_64LinuxGNU(), nil
	case 4:
		return Target{Triple: "i686-linux-gnu", PtrSize: 4, PtrAlign: 4}, nil
	default:
		return Target{}, fmt.Errorf("unsupported pointer size %d", size)
	}
}
