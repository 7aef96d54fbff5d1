package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragsvc/fragments/pkg/fragments/auth"
)

func TestHashOwner(t *testing.T) {
	a := auth.HashOwner("user1@example.com")
	b := auth.HashOwner("user2@example.com")

	// Stable, pseudonymous, and distinct per principal.
	assert.Equal(t, a, auth.HashOwner("user1@example.com"))
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "user1")
	assert.Len(t, a, 64)
}

func protectedEcho(t *testing.T) (http.Handler, *string) {
	t.Helper()

	var seenOwner string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = auth.OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	ja := auth.New("test-secret")
	handler := auth.Verifier(ja)(auth.Authenticator(inner))
	return handler, &seenOwner
}

func TestAuthenticatorRejectsMissingToken(t *testing.T) {
	handler, seenOwner := protectedEcho(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, *seenOwner)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestAuthenticatorRejectsBadToken(t *testing.T) {
	handler, seenOwner := protectedEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, *seenOwner)
}

func TestAuthenticatorDerivesOwner(t *testing.T) {
	var seenOwner string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = auth.OwnerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	ja := auth.New("test-secret")
	handler := auth.Verifier(ja)(auth.Authenticator(inner))

	_, token, err := ja.Encode(map[string]interface{}{"sub": "user1@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.HashOwner("user1@example.com"), seenOwner)
}

func TestAuthenticatorRejectsMissingSubject(t *testing.T) {
	handler, seenOwner := protectedEcho(t)

	ja := auth.New("test-secret")
	_, token, err := ja.Encode(map[string]interface{}{"role": "nobody"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, *seenOwner)
}
