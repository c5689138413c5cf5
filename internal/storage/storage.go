package storage

import "io"

// FileInfo describes a file being stored.
type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage persists uploaded and generated files.
type Storage interface {
	SaveFile(r io.Reader, info FileInfo) (string, error)
	OpenFile(name string) (io.ReadSeekCloser, error)
	DeleteFile(name string) error
}
