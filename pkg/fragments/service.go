package fragments

import (
	"context"
)

// CreateFragmentRequest carries the validated inputs for creating a
// fragment: the pseudonymous owner, the raw Content-Type header value and
// the initial payload.
type CreateFragmentRequest struct {
	OwnerID     string
	ContentType string
	Data        []byte
}

// SetDataRequest carries the inputs for replacing a fragment's payload.
// ContentType is the declared type of the new payload; it must match the
// fragment's immutable stored type.
type SetDataRequest struct {
	OwnerID     string
	FragmentID  string
	ContentType string
	Data        []byte
}

// Service is the fragment entity API: the only surface the surrounding
// HTTP layer calls. All failures are returned as errors matching the
// package's taxonomy; backend errors never escape raw.
type Service interface {
	// CreateFragment allocates a fresh fragment, writes metadata then
	// data, and returns the populated record. An unsupported content type
	// fails with ErrUnsupportedType before any storage write. If the data
	// write fails after metadata was stored, the metadata is rolled back
	// so no orphaned record is visible to later reads; a crash between
	// the two writes can still leave an orphan, since the stores share no
	// transaction.
	CreateFragment(ctx context.Context, req CreateFragmentRequest) (*Fragment, error)

	// GetFragment returns the metadata record for the owner and id, or an
	// error matching ErrNotFound.
	GetFragment(ctx context.Context, ownerID, fragmentID string) (*Fragment, error)

	// GetData returns the fragment's payload. Metadata that exists
	// without a blob is a consistency fault, reported as ErrNotFound
	// rather than silently repaired.
	GetData(ctx context.Context, fragment *Fragment) ([]byte, error)

	// GetConvertedData returns the payload rendered as the requested
	// extension, with its output media type. An empty extension returns
	// the stored bytes and type unchanged; a disallowed pairing fails
	// with ErrUnsupportedConversion.
	GetConvertedData(ctx context.Context, ownerID, fragmentID, ext string) (string, []byte, error)

	// SetData replaces the fragment's payload wholesale, recomputing Size
	// and refreshing Updated. The fragment's type never changes: a
	// declared content type different from the stored one fails with
	// ErrTypeMismatch before any bytes are written.
	SetData(ctx context.Context, req SetDataRequest) (*Fragment, error)

	// ListFragments returns the full metadata records owned by ownerID.
	ListFragments(ctx context.Context, ownerID string) ([]*Fragment, error)

	// ListFragmentIDs returns only the ids owned by ownerID.
	ListFragmentIDs(ctx context.Context, ownerID string) ([]string, error)

	// DeleteFragment removes the fragment's data and metadata. It returns
	// false (and no error) when nothing existed to delete; on true, both
	// are gone from subsequent reads.
	DeleteFragment(ctx context.Context, ownerID, fragmentID string) (bool, error)

	// IsSupportedType reports whether a raw Content-Type header value
	// names a storable media type. Pure predicate for the ingress layer.
	IsSupportedType(contentType string) bool
}
