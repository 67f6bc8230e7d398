package authctx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-bytes-long-xxxxxx"

// makeToken creates a signed HS256 JWT from the given secret and claims.
func makeToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestResolver() *Resolver {
	verifier := NewSharedSecretVerifier(testSecret, "tenant_id")
	return NewResolver(verifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func headerWithBearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func TestResolve_NoCredential(t *testing.T) {
	t.Parallel()

	sc := newTestResolver().Resolve(context.Background(), http.Header{})
	assert.True(t, sc.IsAnonymous())
	assert.Nil(t, sc.Settings())
}

func TestResolve_ValidCredential(t *testing.T) {
	t.Parallel()

	token := makeToken(t, testSecret, jwt.MapClaims{
		"sub":       "user-42",
		"tenant_id": "acme",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	sc := newTestResolver().Resolve(context.Background(), headerWithBearer(token))
	assert.Equal(t, SecurityContext{Subject: "user-42", Tenant: "acme"}, sc)
	assert.Equal(t, map[string]string{
		"app.user_id":   "user-42",
		"app.tenant_id": "acme",
	}, sc.Settings())
}

func TestResolve_SubjectWithoutTenant(t *testing.T) {
	t.Parallel()

	token := makeToken(t, testSecret, jwt.MapClaims{
		"sub": "user-7",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sc := newTestResolver().Resolve(context.Background(), headerWithBearer(token))
	assert.Equal(t, "user-7", sc.Subject)
	assert.Empty(t, sc.Tenant)
	assert.Equal(t, map[string]string{"app.user_id": "user-7"}, sc.Settings())
}

func TestResolve_NumericSubjectIsStringCoerced(t *testing.T) {
	t.Parallel()

	token := makeToken(t, testSecret, jwt.MapClaims{
		"sub": 12345,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sc := newTestResolver().Resolve(context.Background(), headerWithBearer(token))
	assert.Equal(t, "12345", sc.Subject)
}

func TestResolve_BadCredentialsDowngradeToAnonymous(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header http.Header
	}{
		{
			name: "expired token",
			header: headerWithBearer(makeToken(t, testSecret, jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(-time.Hour).Unix(),
			})),
		},
		{
			name: "wrong secret",
			header: headerWithBearer(makeToken(t, "another-secret-32-bytes-long-xxx", jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(time.Hour).Unix(),
			})),
		},
		{
			name:   "malformed token",
			header: headerWithBearer("not.a.jwt"),
		},
		{
			name: "not a bearer scheme",
			header: http.Header{
				"Authorization": []string{"Basic dXNlcjpwdw=="},
			},
		},
		{
			name: "token without subject",
			header: headerWithBearer(makeToken(t, testSecret, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			})),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sc := newTestResolver().Resolve(context.Background(), tt.header)
			assert.True(t, sc.IsAnonymous(), "bad credentials must resolve to the anonymous context")
			assert.Nil(t, sc.Settings())
		})
	}
}

func TestResolve_RejectsNonHS256Algorithms(t *testing.T) {
	t.Parallel()

	// alg=none tokens must never verify.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	sc := newTestResolver().Resolve(context.Background(), headerWithBearer(signed))
	assert.True(t, sc.IsAnonymous())
}

func TestSettingsForRequest(t *testing.T) {
	t.Parallel()

	r := newTestResolver()

	assert.Nil(t, r.SettingsForRequest(context.Background(), http.Header{}))

	token := makeToken(t, testSecret, jwt.MapClaims{
		"sub":       "user-9",
		"tenant_id": "globex",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	settings := r.SettingsForRequest(context.Background(), headerWithBearer(token))
	assert.Equal(t, "user-9", settings["app.user_id"])
	assert.Equal(t, "globex", settings["app.tenant_id"])
}

func TestCoerceString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", coerceString("abc"))
	assert.Equal(t, "42", coerceString(float64(42)))
	assert.Equal(t, "4.5", coerceString(4.5))
	assert.Equal(t, "", coerceString(nil))
	assert.Equal(t, "true", coerceString(true))
}
