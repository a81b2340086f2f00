package domain

// ExportFile describes one data set serialized for download.
type ExportFile struct {
	Type     DataType
	Data     []byte // Transient content handle, nil after Release
	Filename string
	Size     int
}

// Release invalidates the content handle. Size is kept for reporting.
func (f *ExportFile) Release() {
	f.Data = nil
}

// Released reports whether the content handle has been invalidated
func (f ExportFile) Released() bool {
	return f.Data == nil
}

// Stats holds per-data-set record counts
type Stats struct {
	Posts    int `json:"posts"`
	Schedule int `json:"schedule"`
	Creators int `json:"creators"`
	Total    int `json:"total"`
}
