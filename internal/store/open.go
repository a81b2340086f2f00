package store

import (
	"fmt"

	"github.com/mmcdole/tadb/internal/domain"
)

// Driver identifies a fallback store backend
type Driver string

const (
	DriverBolt   Driver = "bolt"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// Open creates the fallback store for driver at path.
// An empty driver selects bolt.
func Open(driver Driver, path string) (domain.FallbackStore, error) {
	switch driver {
	case DriverBolt, "":
		if path == "" {
			return nil, fmt.Errorf("bolt store requires a path")
		}
		return NewBoltStore(path)
	case DriverSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewBoltStore("")
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
