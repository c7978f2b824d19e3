package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorType tags a failed attempt for responses and metrics.
type ErrorType string

const (
	ErrorRateLimit      ErrorType = "rate_limit"
	ErrorInvalidJSON    ErrorType = "invalid_json"
	ErrorValidation     ErrorType = "validation_error"
	ErrorDuplicateEmail ErrorType = "duplicate_email"
	ErrorDatabase       ErrorType = "database_error"
	ErrorUnexpected     ErrorType = "unexpected_error"
)

// User-facing messages.
const (
	MsgValidationFailed   = "Validation failed"
	MsgDuplicateEmail     = "This email is already registered"
	MsgUnavailable        = "Registration is temporarily unavailable. Please try again later."
	MsgInvalidData        = "Invalid registration data. Please check your input."
	MsgSaveFailed         = "Failed to save registration. Please try again."
	MsgContactSaveFailed  = "Failed to send message. Please try again."
	MsgUnexpected         = "An unexpected error occurred"
	codeUnknown           = "unknown"
	integrityViolationCls = "23"
)

// Error is a classified pipeline failure. Message is safe to show to users;
// Cause carries the underlying error for logs.
type Error struct {
	Type    ErrorType
	Status  int
	Message string
	Code    string
	Errors  []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// writeRule maps a backend failure to a response. A rule matches on exact
// SQLSTATE codes, on a code class prefix, or on message substrings.
type writeRule struct {
	codes      []string
	codeClass  string
	substrings []string

	typ     ErrorType
	status  int
	message string
}

// writeRules is ordered: the first matching rule wins. Codes are tried for
// every rule before any message substring is.
var writeRules = []writeRule{
	{
		codes:      []string{"23505"},
		substrings: []string{"duplicate", "unique constraint"},
		typ:        ErrorDuplicateEmail,
		status:     http.StatusConflict,
		message:    MsgDuplicateEmail,
	},
	{
		codes:      []string{"42501"},
		substrings: []string{"row-level security", "RLS"},
		typ:        ErrorDatabase,
		status:     http.StatusServiceUnavailable,
		message:    MsgUnavailable,
	},
	{
		codeClass:  integrityViolationCls,
		substrings: []string{"violates check constraint", "constraint"},
		typ:        ErrorDatabase,
		status:     http.StatusBadRequest,
		message:    MsgInvalidData,
	},
}

func (r writeRule) matchCode(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range r.codes {
		if c == code {
			return true
		}
	}
	return r.codeClass != "" && strings.HasPrefix(code, r.codeClass)
}

func (r writeRule) matchMessage(msg string) bool {
	for _, s := range r.substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// classifyWriteError turns an insert failure into a *Error.
func classifyWriteError(err error) *Error {
	var (
		code string
		msg  = err.Error()
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
		msg = pgErr.Message
	}

	rule, ok := matchWriteRule(code, msg)
	if !ok {
		rule = writeRule{typ: ErrorDatabase, status: http.StatusInternalServerError, message: MsgSaveFailed}
	}
	if code == "" {
		code = codeUnknown
	}
	return &Error{
		Type:    rule.typ,
		Status:  rule.status,
		Message: rule.message,
		Code:    code,
		Cause:   err,
	}
}

func matchWriteRule(code, msg string) (writeRule, bool) {
	for _, r := range writeRules {
		if r.matchCode(code) {
			return r, true
		}
	}
	for _, r := range writeRules {
		if r.matchMessage(msg) {
			return r, true
		}
	}
	return writeRule{}, false
}
