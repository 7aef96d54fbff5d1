package fragments

import (
	"errors"
	"fmt"

	"github.com/fragsvc/fragments/pkg/fragments/convert"
)

// Error values returned by the fragments service. Conversion errors are
// produced by the convert package; they are re-exported here so callers
// work against a single taxonomy with errors.Is.
var (
	// ErrNotFound indicates no fragment (or no data blob) exists for the
	// given owner and id.
	ErrNotFound = errors.New("fragment not found")

	// ErrUnsupportedType indicates a create with a media type outside the
	// registry.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrTypeMismatch indicates a data update whose declared content type
	// differs from the fragment's immutable type.
	ErrTypeMismatch = errors.New("content type does not match fragment type")

	// ErrUnsupportedConversion indicates the requested extension is not
	// valid for the stored type.
	ErrUnsupportedConversion = convert.ErrUnsupported

	// ErrImageConversion indicates the raster codec collaborator failed.
	ErrImageConversion = convert.ErrImage

	// ErrStorageFault indicates a backend I/O failure.
	ErrStorageFault = errors.New("storage backend fault")
)

// FragmentError carries the operation and key context for a failed
// fragment operation.
type FragmentError struct {
	OwnerID    string
	FragmentID string
	Op         string
	Err        error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment operation %s failed for %s/%s: %v", e.Op, e.OwnerID, e.FragmentID, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// StorageError carries backend context for a failed store operation.
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

// Is makes every StorageError match ErrStorageFault, so callers can class
// backend failures without losing the underlying cause.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFault
}
