//go:build !unix

package logfile

import "os"

// No advisory locking here; the sink mutex still serializes this process.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
