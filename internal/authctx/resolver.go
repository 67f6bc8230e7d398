// Package authctx derives a per-request security context from the inbound
// bearer credential and turns it into transaction-scoped database settings
// for row-level policy evaluation.
package authctx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"graphgate/internal/domain"
)

// Session variable keys consumed by row-level security policies.
const (
	SubjectKey = "app.user_id"
	TenantKey  = "app.tenant_id"
)

// SecurityContext holds the identity facts for exactly one request. The zero
// value is the anonymous context; queries then run under the connection's
// default, least-privileged role.
type SecurityContext struct {
	Subject string
	Tenant  string
}

// IsAnonymous reports whether no verified identity is attached.
func (s SecurityContext) IsAnonymous() bool {
	return s.Subject == ""
}

// Settings returns the session variables to apply for this request's
// transaction, or nil for the anonymous context.
func (s SecurityContext) Settings() map[string]string {
	if s.IsAnonymous() {
		return nil
	}
	settings := map[string]string{SubjectKey: s.Subject}
	if s.Tenant != "" {
		settings[TenantKey] = s.Tenant
	}
	return settings
}

// Claims are the verified facts extracted from a credential.
type Claims struct {
	Subject string
	Tenant  string
}

// Verifier checks a raw bearer token and extracts claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Resolver turns request headers into a SecurityContext. Resolve is total:
// a missing, malformed, or expired credential yields the anonymous context,
// never an error: access degrades, requests do not fail at this layer.
type Resolver struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewResolver creates a resolver around the given verifier.
func NewResolver(verifier Verifier, logger *slog.Logger) *Resolver {
	return &Resolver{verifier: verifier, logger: logger}
}

// Resolve extracts and verifies the bearer credential from the request
// headers. Verification failures are logged at debug level and swallowed;
// the anonymous-on-any-problem policy is deliberate.
func (r *Resolver) Resolve(ctx context.Context, header http.Header) SecurityContext {
	auth := header.Get("Authorization")
	if auth == "" {
		return SecurityContext{}
	}
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		r.logger.Debug("credential downgraded to anonymous",
			"error", domain.ErrCredential("authorization header is not a bearer token", nil))
		return SecurityContext{}
	}

	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		r.logger.Debug("credential downgraded to anonymous",
			"error", domain.ErrCredential("verification failed", err))
		return SecurityContext{}
	}
	if claims.Subject == "" {
		r.logger.Debug("credential downgraded to anonymous",
			"error", domain.ErrCredential("token carries no subject", nil))
		return SecurityContext{}
	}
	return SecurityContext{Subject: claims.Subject, Tenant: claims.Tenant}
}

// SettingsForRequest is the settings-resolution callback handed to the
// schema-graph engine. The engine must call it exactly once per query
// execution and apply the result as transaction-scoped state.
func (r *Resolver) SettingsForRequest(ctx context.Context, header http.Header) map[string]string {
	return r.Resolve(ctx, header).Settings()
}

// coerceString renders a claim value as a string. JWT numeric claims decode
// as float64; integral values must not pick up a decimal point.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
