package domain

import "context"

// StaticSource provides the pre-published, read-only data files.
// Fetch returns ErrSourceNotFound (possibly wrapped) when the resource
// for t does not exist.
type StaticSource interface {
	Fetch(ctx context.Context, t DataType) ([]byte, error)
}

// Saver performs the host-level "save to disk" action for an exported file.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) error
}
