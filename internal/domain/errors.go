// Package domain defines the core types and error taxonomy for the gateway.
package domain

import (
	"fmt"
	"time"
)

// ConfigErrorKind distinguishes the startup validation failures.
type ConfigErrorKind string

const (
	// MissingRequiredVar means a required environment variable was not set.
	MissingRequiredVar ConfigErrorKind = "missing_required_var"
	// InsecureSecret means the credential-verification secret is too weak
	// for the current deployment tier.
	InsecureSecret ConfigErrorKind = "insecure_secret"
	// InvalidValue means a variable was present but could not be parsed.
	InvalidValue ConfigErrorKind = "invalid_value"
)

// ConfigError indicates a fatal startup configuration problem.
// The process must terminate without retrying.
type ConfigError struct {
	Kind    ConfigErrorKind
	Var     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s (%s)", e.Message, e.Var)
}

// ErrMissingVar creates a ConfigError for an unset required variable.
func ErrMissingVar(name string) *ConfigError {
	return &ConfigError{
		Kind:    MissingRequiredVar,
		Var:     name,
		Message: "required environment variable is not set",
	}
}

// ErrInsecureSecret creates a ConfigError for a secret below the minimum length.
func ErrInsecureSecret(name string, minLen int) *ConfigError {
	return &ConfigError{
		Kind:    InsecureSecret,
		Var:     name,
		Message: fmt.Sprintf("secret must be at least %d characters in production", minLen),
	}
}

// ErrInvalidValue creates a ConfigError for an unparseable variable.
func ErrInvalidValue(name, reason string) *ConfigError {
	return &ConfigError{Kind: InvalidValue, Var: name, Message: reason}
}

// PoolExhaustedError indicates a connection could not be acquired within the
// configured timeout. Transient: surfaced to the caller as retryable.
type PoolExhaustedError struct {
	Timeout time.Duration
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("connection pool exhausted: no connection available within %s", e.Timeout)
}

// ErrPoolExhausted creates a PoolExhaustedError with the acquire timeout that elapsed.
func ErrPoolExhausted(timeout time.Duration) *PoolExhaustedError {
	return &PoolExhaustedError{Timeout: timeout}
}

// PoolFaultError indicates an unrecoverable pool-level fault (for example an
// unreachable database). Fatal for the whole process: partial degradation of
// only the pool is not supported.
type PoolFaultError struct {
	Err error
}

func (e *PoolFaultError) Error() string {
	return fmt.Sprintf("pool fault: %v", e.Err)
}

func (e *PoolFaultError) Unwrap() error { return e.Err }

// ErrPoolFault wraps an underlying error as a process-fatal pool fault.
func ErrPoolFault(err error) *PoolFaultError {
	return &PoolFaultError{Err: err}
}

// CredentialError indicates a credential that failed verification. Non-fatal:
// the resolver downgrades the request to the anonymous context and never
// surfaces this error to the caller. It exists for logging and tests.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential invalid: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("credential invalid: %s", e.Reason)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// ErrCredential creates a CredentialError with a verification failure reason.
func ErrCredential(reason string, err error) *CredentialError {
	return &CredentialError{Reason: reason, Err: err}
}

// QueryError indicates a database query failure surfaced to the caller.
// Error detail exposure is tier-dependent and decided at the HTTP layer.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query: %s: %v", e.Message, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrQuery wraps a database error with a short description of the operation.
func ErrQuery(message string, err error) *QueryError {
	return &QueryError{Message: message, Err: err}
}
