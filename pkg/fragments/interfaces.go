package fragments

import (
	"context"
)

// MetadataStore persists fragment metadata records, keyed by owner and
// fragment id. Implementations must scope every operation to the owner:
// no call may observe another owner's records, including List. Get after
// Put returns exactly the record last written; Get and Delete report a
// missing key with an error matching ErrNotFound.
type MetadataStore interface {
	// PutFragment stores or replaces the metadata record.
	PutFragment(ctx context.Context, fragment *Fragment) error

	// GetFragment returns the record for the owner and id.
	GetFragment(ctx context.Context, ownerID, fragmentID string) (*Fragment, error)

	// ListFragments returns all records owned by ownerID. Order is
	// backend-defined; callers treat the result as a set.
	ListFragments(ctx context.Context, ownerID string) ([]*Fragment, error)

	// DeleteFragment removes the record.
	DeleteFragment(ctx context.Context, ownerID, fragmentID string) error
}

// DataStore persists raw fragment payloads, keyed by owner and fragment
// id. The same contract applies: owner scoping, get-after-put exactness,
// and errors matching ErrNotFound for missing keys.
type DataStore interface {
	// PutData stores or replaces the blob.
	PutData(ctx context.Context, ownerID, fragmentID string, data []byte) error

	// GetData returns the blob for the owner and id.
	GetData(ctx context.Context, ownerID, fragmentID string) ([]byte, error)

	// DeleteData removes the blob.
	DeleteData(ctx context.Context, ownerID, fragmentID string) error
}
