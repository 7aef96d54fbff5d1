package fragments

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fragsvc/fragments/pkg/fragments/mimetype"
)

// Fragment is the metadata record for one stored piece of content. ID,
// OwnerID and Type are fixed at creation; Size and Updated are refreshed
// on every data write. Size is derived from the stored blob, never set by
// callers.
type Fragment struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"ownerId"`
	Type    string    `json:"type"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewFragment allocates a fragment record for the given owner and
// Content-Type header value. The type may carry parameters (for example a
// charset) and is stored as given; a type outside the registry is rejected
// with ErrUnsupportedType before anything is written.
func NewFragment(ownerID, contentType string) (*Fragment, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if !mimetype.IsSupported(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	now := time.Now().UTC()
	return &Fragment{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Type:    contentType,
		Created: now,
		Updated: now,
	}, nil
}

// MediaType returns the fragment's bare media type, without parameters.
func (f *Fragment) MediaType() string {
	mediaType, err := mimetype.Parse(f.Type)
	if err != nil {
		return f.Type
	}
	return mediaType
}

// IsText reports whether the fragment holds textual content.
func (f *Fragment) IsText() bool {
	return mimetype.IsText(f.Type)
}

// Formats returns the extensions this fragment can be requested as.
func (f *Fragment) Formats() []string {
	return mimetype.Extensions(f.MediaType())
}
