package domain

// FallbackStore is the durable key-value store used when no static file
// exists. Values are JSON arrays, one key per data set.
type FallbackStore interface {
	// Get returns the value for key; ok is false when the key is absent
	Get(key string) (value []byte, ok bool, err error)

	// Set replaces the value for key
	Set(key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error

	// Keys lists stored keys in ascending order
	Keys() ([]string, error)

	Close() error
}
