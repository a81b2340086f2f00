package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataType names one of the catalog data sets.
type DataType string

const (
	DataTypePosts    DataType = "posts"
	DataTypeSchedule DataType = "schedule"
	DataTypeCreators DataType = "creators"
)

// AllDataTypes lists the data sets in export order.
var AllDataTypes = []DataType{DataTypePosts, DataTypeSchedule, DataTypeCreators}

// ParseDataType converts a name into a DataType
func ParseDataType(name string) (DataType, error) {
	t := DataType(strings.ToLower(strings.TrimSpace(name)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataType, name)
	}
	return t, nil
}

// Valid reports whether t is one of the known data sets
func (t DataType) Valid() bool {
	switch t {
	case DataTypePosts, DataTypeSchedule, DataTypeCreators:
		return true
	}
	return false
}

// StorageKey returns the fallback store key for the data set.
func (t DataType) StorageKey() string {
	return "tadb_" + string(t)
}

// FileName returns the export/static file name, e.g. "posts.json".
func (t DataType) FileName() string {
	return string(t) + ".json"
}

// StaticPath returns the path of the static resource relative to the site root.
func (t DataType) StaticPath() string {
	return "data/" + t.FileName()
}

func (t DataType) String() string {
	return string(t)
}

// Record is a single opaque JSON value of a data set.
type Record = json.RawMessage

// CloneRecords returns a deep copy of records.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = append(Record(nil), r...)
	}
	return out
}
