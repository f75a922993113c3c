package domain

import (
	"errors"
	"strings"
)

// Store-level errors
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrImageNotFound     = errors.New("image not found")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

// Kind classifies an error so callers can branch without reading messages
type Kind uint8

const (
	Unexpected Kind = iota
	NotFound
	Mismatch
	InvalidInput
	Conflict
	StorageFailure
	PersistenceFailure
)

var kindNames = map[Kind]string{
	Unexpected:         "unexpected",
	NotFound:           "not_found",
	Mismatch:           "mismatch",
	InvalidInput:       "invalid_input",
	Conflict:           "conflict",
	StorageFailure:     "storage_failure",
	PersistenceFailure: "persistence_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unexpected]
}

// MarshalText encodes the kind by name in JSON responses
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is the tagged error returned by services and the image set manager
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "imageset.Promote"
	Message string // safe to show to users
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error
func E(kind Kind, op, message string, err error) error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, Unexpected otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// MessageOf returns the user-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "unexpected error"
}
