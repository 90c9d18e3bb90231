//go:build unix

package board

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock acquires a blocking shared or exclusive lock on f. Writers wait
// indefinitely rather than fail under contention.
func flock(f *os.File, mode lockMode) error {
	how := unix.LOCK_SH
	if mode == lockExclusive {
		how = unix.LOCK_EX
	}
	return unix.Flock(int(f.Fd()), how)
}

// funlock releases the lock on f.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
