package fragments_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragsvc/fragments/pkg/fragments"
	"github.com/fragsvc/fragments/pkg/fragments/store/memory"
)

func TestServiceCreation(t *testing.T) {
	store := memory.New()

	tests := []struct {
		name        string
		options     []fragments.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []fragments.Option{},
			expectError: true,
		},
		{
			name: "metadata store only should fail",
			options: []fragments.Option{
				fragments.WithMetadataStore(store),
			},
			expectError: true,
		},
		{
			name: "both stores should succeed",
			options: []fragments.Option{
				fragments.WithMetadataStore(store),
				fragments.WithDataStore(store),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := fragments.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) (fragments.Service, *memory.Store) {
	t.Helper()

	store := memory.New()
	svc, err := fragments.New(
		fragments.WithMetadataStore(store),
		fragments.WithDataStore(store),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc, store
}

func mustCreate(t *testing.T, svc fragments.Service, ownerID, contentType string, data []byte) *fragments.Fragment {
	t.Helper()

	fragment, err := svc.CreateFragment(context.Background(), fragments.CreateFragmentRequest{
		OwnerID:     ownerID,
		ContentType: contentType,
		Data:        data,
	})
	require.NoError(t, err)
	require.NotNil(t, fragment)
	return fragment
}

func TestCreateFragment(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"plain text", "text/plain", []byte("hello")},
		{"plain text with charset", "text/plain; charset=utf-8", []byte("hello")},
		{"markdown", "text/markdown", []byte("# Hello")},
		{"json", "application/json", []byte(`{"a":1}`)},
		{"csv", "text/csv", []byte("a,b\n1,2\n")},
		{"empty payload", "text/plain", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragment := mustCreate(t, svc, "owner-a", tt.contentType, tt.data)

			assert.NotEmpty(t, fragment.ID)
			assert.Equal(t, "owner-a", fragment.OwnerID)
			assert.Equal(t, tt.contentType, fragment.Type)
			assert.Equal(t, int64(len(tt.data)), fragment.Size)
			assert.False(t, fragment.Created.IsZero())
			assert.False(t, fragment.Updated.IsZero())

			got, err := svc.GetData(ctx, fragment)
			require.NoError(t, err)
			assert.Equal(t, tt.data, got)
		})
	}
}

func TestCreateFragmentUnsupportedType(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	tests := []string{
		"application/msword",
		"video/mp4",
		"not a media type at all",
		"",
	}

	for _, contentType := range tests {
		_, err := svc.CreateFragment(ctx, fragments.CreateFragmentRequest{
			OwnerID:     "owner-a",
			ContentType: contentType,
			Data:        []byte("data"),
		})
		assert.ErrorIs(t, err, fragments.ErrUnsupportedType, "type %q", contentType)
	}

	// Rejection happens before any storage write.
	ids, err := svc.ListFragmentIDs(ctx, "owner-a")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// failingDataStore rejects every write so create rollback can be observed.
type failingDataStore struct {
	fragments.DataStore
}

func (failingDataStore) PutData(ctx context.Context, ownerID, fragmentID string, data []byte) error {
	return errors.New("disk on fire")
}

func TestCreateFragmentRollsBackMetadata(t *testing.T) {
	store := memory.New()
	svc, err := fragments.New(
		fragments.WithMetadataStore(store),
		fragments.WithDataStore(failingDataStore{store}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.CreateFragment(ctx, fragments.CreateFragmentRequest{
		OwnerID:     "owner-a",
		ContentType: "text/plain",
		Data:        []byte("hello"),
	})
	require.Error(t, err)

	// No orphaned metadata is visible to later reads.
	ids, err := svc.ListFragmentIDs(ctx, "owner-a")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetFragmentNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.GetFragment(context.Background(), "owner-a", "no-such-id")
	assert.ErrorIs(t, err, fragments.ErrNotFound)
}

func TestOwnerIsolation(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	fragment := mustCreate(t, svc, "owner-a", "text/plain", []byte("private"))

	_, err := svc.GetFragment(ctx, "owner-b", fragment.ID)
	assert.ErrorIs(t, err, fragments.ErrNotFound)

	ids, err := svc.ListFragmentIDs(ctx, "owner-b")
	require.NoError(t, err)
	assert.Empty(t, ids)

	deleted, err := svc.DeleteFragment(ctx, "owner-b", fragment.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The owner still sees everything.
	_, err = svc.GetFragment(ctx, "owner-a", fragment.ID)
	assert.NoError(t, err)
}

func TestGetDataMissingBlob(t *testing.T) {
	svc, store := setupTestService(t)
	ctx := context.Background()

	fragment := mustCreate(t, svc, "owner-a", "text/plain", []byte("hello"))

	// Simulate a consistency fault: the blob vanishes behind the
	// metadata's back.
	require.NoError(t, store.DeleteData(ctx, fragment.OwnerID, fragment.ID))

	_, err := svc.GetData(ctx, fragment)
	assert.ErrorIs(t, err, fragments.ErrNotFound)
}

func TestSetData(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	fragment := mustCreate(t, svc, "owner-a", "text/markdown", []byte("# One"))

	updated, err := svc.SetData(ctx, fragments.SetDataRequest{
		OwnerID:     fragment.OwnerID,
		FragmentID:  fragment.ID,
		ContentType: "text/markdown",
		Data:        []byte("# Two, now longer"),
	})
	require.NoError(t, err)

	assert.Equal(t, fragment.ID, updated.ID)
	assert.Equal(t, fragment.Type, updated.Type)
	assert.Equal(t, int64(len("# Two, now longer")), updated.Size)
	assert.Equal(t, fragment.Created, updated.Created)
	assert.False(t, updated.Updated.Before(fragment.Updated))

	data, err := svc.GetData(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, []byte("# Two, now longer"), data)
}

func TestSetDataTypeMismatch(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	fragment := mustCreate(t, svc, "owner-a", "text/markdown", []byte("# One"))

	_, err := svc.SetData(ctx, fragments.SetDataRequest{
		OwnerID:     fragment.OwnerID,
		FragmentID:  fragment.ID,
		ContentType: "text/plain",
		Data:        []byte("not markdown anymore"),
	})
	assert.ErrorIs(t, err, fragments.ErrTypeMismatch)

	// No bytes were written and the type never changed.
	got, err := svc.GetFragment(ctx, fragment.OwnerID, fragment.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", got.Type)

	data, err := svc.GetData(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []byte("# One"), data)
}

func TestSetDataNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.SetData(context.Background(), fragments.SetDataRequest{
		OwnerID:     "owner-a",
		FragmentID:  "no-such-id",
		ContentType: "text/plain",
		Data:        []byte("data"),
	})
	assert.ErrorIs(t, err, fragments.ErrNotFound)
}

func TestListFragments(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	b1 := mustCreate(t, svc, "owner-a", "text/plain", []byte("one"))
	b2 := mustCreate(t, svc, "owner-a", "application/json", []byte(`{}`))

	ids, err := svc.ListFragmentIDs(ctx, "owner-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b1.ID, b2.ID}, ids)

	records, err := svc.ListFragments(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]*fragments.Fragment{}
	for _, record := range records {
		byID[record.ID] = record
	}
	assert.Equal(t, b1, byID[b1.ID])
	assert.Equal(t, b2, byID[b2.ID])
}

func TestListFragmentsEmptyOwner(t *testing.T) {
	svc, _ := setupTestService(t)

	ids, err := svc.ListFragmentIDs(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteFragment(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	fragment := mustCreate(t, svc, "owner-a", "text/plain", []byte("doomed"))

	deleted, err := svc.DeleteFragment(ctx, fragment.OwnerID, fragment.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Both metadata and data are gone from subsequent reads.
	_, err = svc.GetFragment(ctx, fragment.OwnerID, fragment.ID)
	assert.ErrorIs(t, err, fragments.ErrNotFound)
	_, err = svc.GetData(ctx, fragment)
	assert.ErrorIs(t, err, fragments.ErrNotFound)

	// Idempotent in effect: the second call reports nothing to delete.
	deleted, err = svc.DeleteFragment(ctx, fragment.OwnerID, fragment.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetConvertedData(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	t.Run("no extension returns stored bytes and type", func(t *testing.T) {
		fragment := mustCreate(t, svc, "owner-a", "text/markdown; charset=utf-8", []byte("# Hello"))

		mediaType, data, err := svc.GetConvertedData(ctx, fragment.OwnerID, fragment.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "text/markdown; charset=utf-8", mediaType)
		assert.Equal(t, []byte("# Hello"), data)
	})

	t.Run("markdown to html", func(t *testing.T) {
		fragment := mustCreate(t, svc, "owner-a", "text/markdown", []byte("# Hello"))

		mediaType, data, err := svc.GetConvertedData(ctx, fragment.OwnerID, fragment.ID, "html")
		require.NoError(t, err)
		assert.Equal(t, "text/html", mediaType)
		assert.Contains(t, string(data), "<h1>Hello</h1>")
	})

	t.Run("json to yaml", func(t *testing.T) {
		fragment := mustCreate(t, svc, "owner-a", "application/json", []byte(`{"hello":"world"}`))

		mediaType, data, err := svc.GetConvertedData(ctx, fragment.OwnerID, fragment.ID, "yaml")
		require.NoError(t, err)
		assert.Equal(t, "application/yaml", mediaType)
		assert.Equal(t, "hello: world\n", string(data))
	})

	t.Run("unsupported conversion", func(t *testing.T) {
		fragment := mustCreate(t, svc, "owner-a", "application/yaml", []byte("hello: world\n"))

		_, _, err := svc.GetConvertedData(ctx, fragment.OwnerID, fragment.ID, "html")
		assert.ErrorIs(t, err, fragments.ErrUnsupportedConversion)
	})

	t.Run("unknown fragment", func(t *testing.T) {
		_, _, err := svc.GetConvertedData(ctx, "owner-a", "no-such-id", "txt")
		assert.ErrorIs(t, err, fragments.ErrNotFound)
	})
}

func TestIsSupportedType(t *testing.T) {
	svc, _ := setupTestService(t)

	assert.True(t, svc.IsSupportedType("text/plain"))
	assert.True(t, svc.IsSupportedType("text/plain; charset=utf-8"))
	assert.True(t, svc.IsSupportedType("application/json"))
	assert.True(t, svc.IsSupportedType("image/png"))
	assert.False(t, svc.IsSupportedType("video/mp4"))
	assert.False(t, svc.IsSupportedType(""))
}

func TestFragmentHelpers(t *testing.T) {
	fragment, err := fragments.NewFragment("owner-a", "text/markdown; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, "text/markdown", fragment.MediaType())
	assert.True(t, fragment.IsText())
	assert.Equal(t, []string{"html", "md", "txt"}, fragment.Formats())

	image, err := fragments.NewFragment("owner-a", "image/png")
	require.NoError(t, err)
	assert.False(t, image.IsText())
	assert.True(t, strings.Contains(strings.Join(image.Formats(), ","), "webp"))
}
