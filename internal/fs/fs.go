// Package fs is the filesystem seam used by the board commands.
//
// [Real] is the only implementation shipped; tests substitute their own [FS]
// to simulate read or write failures.
package fs

import (
	"io"
	"os"
)

// File is an open file descriptor. [os.File] satisfies it.
type File interface {
	io.ReadWriteCloser

	// Fd returns the descriptor used for flock.
	Fd() uintptr
	Stat() (os.FileInfo, error)
}

// FS is the set of filesystem operations kb performs.
type FS interface {
	// OpenFile opens a file with the given flags. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads a whole file. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces path with data via temp file and rename, so
	// readers see either the old or the new board, never a partial one.
	WriteFileAtomic(path string, data []byte) error

	// MkdirAll creates a directory and its parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether path exists. A missing file is (false, nil).
	Exists(path string) (bool, error)
}

var _ File = (*os.File)(nil)
