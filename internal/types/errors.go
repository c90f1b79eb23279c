package types

import "errors"

// ErrorKind discriminates the closed set of domain failures. Handlers switch
// on the kind to pick an outward status; anything that is not a DomainError
// surfaces as a generic internal failure.
type ErrorKind string

const (
	KindDuplicateNickname  ErrorKind = "duplicate_nickname"
	KindNotFound           ErrorKind = "not_found"
	KindVoterNotFound      ErrorKind = "voter_not_found"
	KindTargetNotFound     ErrorKind = "target_not_found"
	KindSelfVoteForbidden  ErrorKind = "self_vote_forbidden"
	KindRateLimited        ErrorKind = "rate_limited"
	KindInvalidVoteValue   ErrorKind = "invalid_vote_value"
	KindPreconditionFailed ErrorKind = "precondition_failed"
	KindStorageFailure     ErrorKind = "storage_failure"
)

// DomainError is the single error type for domain-rule violations.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError with the given kind and message.
func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// KindOf extracts the domain kind from err, unwrapping as needed.
// The second return is false when err carries no DomainError.
func KindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
