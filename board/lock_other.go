//go:build !unix

package board

import "os"

// Platforms without flock get no cross-process locking.
func flock(f *os.File, mode lockMode) error { return nil }

func funlock(f *os.File) error { return nil }
