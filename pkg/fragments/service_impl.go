package fragments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fragsvc/fragments/pkg/fragments/convert"
	"github.com/fragsvc/fragments/pkg/fragments/mimetype"
)

// service implements the Service interface.
type service struct {
	metadata  MetadataStore
	data      DataStore
	converter *convert.Converter
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithMetadataStore sets the metadata store for the service.
func WithMetadataStore(store MetadataStore) Option {
	return func(s *service) {
		s.metadata = store
	}
}

// WithDataStore sets the data store for the service.
func WithDataStore(store DataStore) Option {
	return func(s *service) {
		s.data = store
	}
}

// WithConverter sets the conversion engine. Without one, a converter with
// no image codec is used: textual conversions work, image conversions
// fail with ErrImageConversion.
func WithConverter(converter *convert.Converter) Option {
	return func(s *service) {
		s.converter = converter
	}
}

// New creates a new service instance with the given options. A metadata
// store and a data store are required.
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if s.data == nil {
		return nil, fmt.Errorf("data store is required")
	}
	if s.converter == nil {
		s.converter = convert.New()
	}

	return s, nil
}

func (s *service) CreateFragment(ctx context.Context, req CreateFragmentRequest) (*Fragment, error) {
	fragment, err := NewFragment(req.OwnerID, req.ContentType)
	if err != nil {
		return nil, &FragmentError{
			OwnerID: req.OwnerID,
			Op:      "create",
			Err:     err,
		}
	}
	fragment.Size = int64(len(req.Data))

	if err := s.metadata.PutFragment(ctx, fragment); err != nil {
		return nil, &FragmentError{
			OwnerID:    fragment.OwnerID,
			FragmentID: fragment.ID,
			Op:         "create",
			Err:        err,
		}
	}

	if err := s.data.PutData(ctx, fragment.OwnerID, fragment.ID, req.Data); err != nil {
		// Roll back the metadata write so no orphaned record is visible
		// to later reads. The rollback itself is best effort: if it also
		// fails, the orphan window documented on CreateFragment applies.
		if rbErr := s.metadata.DeleteFragment(ctx, fragment.OwnerID, fragment.ID); rbErr != nil {
			slog.Error("metadata rollback failed after data write failure",
				"owner_id", fragment.OwnerID, "fragment_id", fragment.ID, "error", rbErr)
		}
		return nil, &FragmentError{
			OwnerID:    fragment.OwnerID,
			FragmentID: fragment.ID,
			Op:         "create",
			Err:        err,
		}
	}

	return fragment, nil
}

func (s *service) GetFragment(ctx context.Context, ownerID, fragmentID string) (*Fragment, error) {
	fragment, err := s.metadata.GetFragment(ctx, ownerID, fragmentID)
	if err != nil {
		return nil, &FragmentError{
			OwnerID:    ownerID,
			FragmentID: fragmentID,
			Op:         "get",
			Err:        err,
		}
	}
	return fragment, nil
}

func (s *service) GetData(ctx context.Context, fragment *Fragment) ([]byte, error) {
	data, err := s.data.GetData(ctx, fragment.OwnerID, fragment.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Metadata exists but the blob is gone: a consistency fault,
			// reported rather than silently repaired.
			slog.Error("fragment data missing for existing metadata",
				"owner_id", fragment.OwnerID, "fragment_id", fragment.ID)
		}
		return nil, &FragmentError{
			OwnerID:    fragment.OwnerID,
			FragmentID: fragment.ID,
			Op:         "get_data",
			Err:        err,
		}
	}
	return data, nil
}

func (s *service) GetConvertedData(ctx context.Context, ownerID, fragmentID, ext string) (string, []byte, error) {
	fragment, err := s.GetFragment(ctx, ownerID, fragmentID)
	if err != nil {
		return "", nil, err
	}

	data, err := s.GetData(ctx, fragment)
	if err != nil {
		return "", nil, err
	}

	outputType, out, err := s.converter.Convert(ctx, fragment.Type, data, ext)
	if err != nil {
		return "", nil, &FragmentError{
			OwnerID:    ownerID,
			FragmentID: fragmentID,
			Op:         "convert",
			Err:        err,
		}
	}
	return outputType, out, nil
}

func (s *service) SetData(ctx context.Context, req SetDataRequest) (*Fragment, error) {
	fragment, err := s.GetFragment(ctx, req.OwnerID, req.FragmentID)
	if err != nil {
		return nil, err
	}

	declared, err := mimetype.Parse(req.ContentType)
	if err != nil || declared != fragment.MediaType() {
		return nil, &FragmentError{
			OwnerID:    req.OwnerID,
			FragmentID: req.FragmentID,
			Op:         "set_data",
			Err:        fmt.Errorf("%w: fragment is %s, update declared %q", ErrTypeMismatch, fragment.Type, req.ContentType),
		}
	}

	if err := s.data.PutData(ctx, fragment.OwnerID, fragment.ID, req.Data); err != nil {
		return nil, &FragmentError{
			OwnerID:    fragment.OwnerID,
			FragmentID: fragment.ID,
			Op:         "set_data",
			Err:        err,
		}
	}

	fragment.Size = int64(len(req.Data))
	fragment.Updated = time.Now().UTC()
	if err := s.metadata.PutFragment(ctx, fragment); err != nil {
		return nil, &FragmentError{
			OwnerID:    fragment.OwnerID,
			FragmentID: fragment.ID,
			Op:         "set_data",
			Err:        err,
		}
	}

	return fragment, nil
}

func (s *service) ListFragments(ctx context.Context, ownerID string) ([]*Fragment, error) {
	fragments, err := s.metadata.ListFragments(ctx, ownerID)
	if err != nil {
		return nil, &FragmentError{
			OwnerID: ownerID,
			Op:      "list",
			Err:     err,
		}
	}
	return fragments, nil
}

func (s *service) ListFragmentIDs(ctx context.Context, ownerID string) ([]string, error) {
	fragments, err := s.ListFragments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(fragments))
	for i, fragment := range fragments {
		ids[i] = fragment.ID
	}
	return ids, nil
}

func (s *service) DeleteFragment(ctx context.Context, ownerID, fragmentID string) (bool, error) {
	if _, err := s.metadata.GetFragment(ctx, ownerID, fragmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, &FragmentError{
			OwnerID:    ownerID,
			FragmentID: fragmentID,
			Op:         "delete",
			Err:        err,
		}
	}

	// Data first, then metadata: a crash in between leaves metadata whose
	// blob is gone, which GetData reports as a consistency fault instead
	// of serving stale bytes. A blob already missing is tolerated so the
	// delete still converges.
	if err := s.data.DeleteData(ctx, ownerID, fragmentID); err != nil && !errors.Is(err, ErrNotFound) {
		return false, &FragmentError{
			OwnerID:    ownerID,
			FragmentID: fragmentID,
			Op:         "delete",
			Err:        err,
		}
	}

	if err := s.metadata.DeleteFragment(ctx, ownerID, fragmentID); err != nil {
		return false, &FragmentError{
			OwnerID:    ownerID,
			FragmentID: fragmentID,
			Op:         "delete",
			Err:        err,
		}
	}

	return true, nil
}

func (s *service) IsSupportedType(contentType string) bool {
	return mimetype.IsSupported(contentType)
}
