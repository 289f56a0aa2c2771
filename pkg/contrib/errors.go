package contrib

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can pick a message for it.
type Kind int

const (
	// KindUpstream is the catch-all for network, HTTP, parse and decode failures.
	KindUpstream Kind = iota
	KindInvalidUsername
	KindInvalidTheme
	KindMissingCredential
	KindUserNotFound
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindUpstream:          "UpstreamError",
	KindInvalidUsername:   "InvalidUsername",
	KindInvalidTheme:      "InvalidTheme",
	KindMissingCredential: "MissingCredential",
	KindUserNotFound:      "UserNotFound",
	KindRateLimited:       "RateLimited",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String. Unknown names yield KindUpstream.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUpstream
}

// Error is the error type returned by the fetcher and the heat-map service.
type Error struct {
	Kind Kind
	// Message is the detail reported by this module or by the upstream.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// NewError returns an Error of kind k with a formatted message.
func NewError(k Kind, format string, a ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, a...)}
}

// WrapError returns an Error of kind k wrapping err.
func WrapError(k Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, a...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUserNotFound)
// holds for every UserNotFound error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is. They only match *Error values: ErrUpstream does not
// match a plain error even though KindOf reports KindUpstream for it. Use
// KindOf to classify arbitrary errors.
var (
	ErrInvalidUsername   = &Error{Kind: KindInvalidUsername}
	ErrInvalidTheme      = &Error{Kind: KindInvalidTheme}
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrUserNotFound      = &Error{Kind: KindUserNotFound}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrUpstream          = &Error{Kind: KindUpstream}
)

// KindOf returns the kind of the first *Error in err's chain. Errors from
// outside this taxonomy count as KindUpstream, and so does a nil error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// UpstreamMessage returns the detail message of the first *Error in err's
// chain, or "" if there is none.
func UpstreamMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// HumanMessage maps err to a sentence suitable for an end user.
func HumanMessage(err error) string {
	switch KindOf(err) {
	case KindInvalidUsername:
		return "Invalid GitHub username format. Please use a valid GitHub username."
	case KindInvalidTheme:
		return `Invalid theme. Use "light" or "dark".`
	case KindMissingCredential:
		return "GitHub token not configured. Please set GITHUB_TOKEN."
	case KindUserNotFound:
		return "GitHub user not found. Please check the username and try again."
	case KindRateLimited:
		return "GitHub API rate limit exceeded. Please try again later."
	default:
		return "Failed to load GitHub contributions. Please try again."
	}
}
