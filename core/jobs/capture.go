package jobs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CaptureMode selects where background output is held until it's drained.
type CaptureMode string

const (
	// CaptureMemory keeps output in an anonymous in-memory file.
	CaptureMemory CaptureMode = "memory"
	// CaptureDisk keeps output in an unlinked temporary file.
	CaptureDisk CaptureMode = "disk"
)

// OpenCapture creates a readable and writable file for a job's output. The
// file has no name on disk so it disappears when closed. Memory captures
// fall back to disk if the kernel doesn't support memfd_create(2).
func OpenCapture(mode CaptureMode, dir string) (*os.File, error) {
	if mode == CaptureMemory {
		fd, err := unix.MemfdCreate("jobsh-capture", unix.MFD_CLOEXEC)
		if err == nil {
			return os.NewFile(uintptr(fd), "jobsh-capture"), nil
		}
	}

	fd, err := os.CreateTemp(dir, "jobsh-capture-*")
	if err != nil {
		return nil, fmt.Errorf("couldn't create capture file: %w", err)
	}
	if err := os.Remove(fd.Name()); err != nil {
		fd.Close()
		return nil, fmt.Errorf("couldn't unlink capture file: %w", err)
	}
	return fd, nil
}
