package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorKind classifies service failures so the HTTP layer can pick a status code.
type ErrorKind int

// Error kinds understood by the HTTP layer.
const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified service error. Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Message: "invalid email or password"}
	// ErrExternalTokenInvalid indicates the identity provider token could not be verified.
	ErrExternalTokenInvalid = &Error{Kind: KindUnauthenticated, Message: "external identity token invalid"}
	// ErrMissingEmail indicates the verified identity carried no usable email.
	ErrMissingEmail = &Error{Kind: KindValidation, Message: "identity provider did not supply a verified email"}
	// ErrExternalLoginDisabled is returned when no identity provider is configured.
	ErrExternalLoginDisabled = &Error{Kind: KindUnavailable, Message: "external login is not configured"}
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = &Error{Kind: KindConflict, Message: "email already registered"}
	// ErrUsernameTaken indicates the username already belongs to an account.
	ErrUsernameTaken = &Error{Kind: KindConflict, Message: "username already taken"}
	// ErrSelfChat is returned when a user tries to open a direct chat with themselves.
	ErrSelfChat = &Error{Kind: KindValidation, Message: "cannot start a chat with yourself"}
	// ErrNotRoomMember is returned when the caller does not belong to the chat room.
	ErrNotRoomMember = &Error{Kind: KindForbidden, Message: "not a member of this chat room"}
	// ErrNotOwner is returned when the caller tries to change someone else's content.
	ErrNotOwner = &Error{Kind: KindForbidden, Message: "you can only modify your own content"}
	// ErrEmptyMessage is returned when a message has neither content nor attachment.
	ErrEmptyMessage = &Error{Kind: KindValidation, Message: "message requires content or an attachment"}
	// ErrUploadsDisabled is returned when no upload storage is configured.
	ErrUploadsDisabled = &Error{Kind: KindUnavailable, Message: "uploads are not configured"}
)

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func notFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// internal wraps an unexpected failure. The message stays generic.
func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error and wraps anything else.
func notFoundOr(resource string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource)
	}
	return internal("load "+resource, err)
}

// KindOf reports the classification of err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return KindValidation
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind != KindInternal {
		return svcErr.Message
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return "invalid request payload"
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "resource not found"
	}
	return "internal server error"
}

// ValidationDetails flattens validator errors into field → rule pairs.
func ValidationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		rule := fieldErr.Tag()
		if fieldErr.Param() != "" {
			rule += "=" + fieldErr.Param()
		}
		details[fieldErr.Field()] = rule
	}
	return details
}
