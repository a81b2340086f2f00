package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrSourceNotFound indicates the static resource is absent or returned a non-OK status
	ErrSourceNotFound = errors.New("static resource not found")

	// ErrSourceUnavailable indicates the static source could not be reached
	ErrSourceUnavailable = errors.New("static source is unreachable")

	// ErrUnknownDataType indicates a data type name outside posts/schedule/creators
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrPostNotFound indicates the requested post does not exist
	ErrPostNotFound = errors.New("post not found")

	// ErrStoreClosed indicates the fallback store was used after Close
	ErrStoreClosed = errors.New("fallback store is closed")
)
