package paperledger

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrDocumentNotFound indicates a document was not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrWorkNotFound indicates a work was not found
	ErrWorkNotFound = errors.New("work not found")

	// ErrProvenanceNotFound indicates a provenance record was not found
	ErrProvenanceNotFound = errors.New("provenance not found")

	// ErrMetricsNotFound indicates no metrics were recorded for an article
	ErrMetricsNotFound = errors.New("metrics not found")

	// ErrMetricsExist indicates metrics were already recorded for an article
	ErrMetricsExist = errors.New("metrics already recorded for article")

	// ErrDirectoryNotFound indicates the input directory does not exist
	ErrDirectoryNotFound = errors.New("input directory does not exist")

	// ErrInvalidProvenance indicates a provenance record failed validation
	ErrInvalidProvenance = errors.New("invalid provenance")

	// ErrDocumentNotLinked indicates a document does not belong to the work
	ErrDocumentNotLinked = errors.New("document is not linked to work")

	// ErrObjectNotFound indicates a blob store key does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists indicates a create-only upload found the key taken
	ErrObjectExists = errors.New("object already exists")

	// ErrKeyConflict indicates a blob key already holds different content
	ErrKeyConflict = errors.New("object key holds different content")

	// ErrNoAnalyzer indicates an analysis was requested without an analyzer
	ErrNoAnalyzer = errors.New("analyzer is not configured")
)

// StorageError represents a failed blob store operation for a single item.
// It never aborts a batch.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PersistenceError represents a database failure other than a duplicate insert.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConfigurationError represents a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError builds a ConfigurationError from a message.
func NewConfigurationError(field, msg string) error {
	return &ConfigurationError{Field: field, Err: errors.New(msg)}
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsPersistenceError reports whether err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
