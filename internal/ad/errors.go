package ad

import "errors"

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrBusy        = errors.New("a generation is already in progress")
)

const (
	MessageConfig     = "API Key is missing. Please check your configuration."
	MessageImage      = "Failed to generate advertisement image."
	MessageCopy       = "Failed to generate advertisement copy."
	MessageUnexpected = "An unexpected error occurred. Please try again."
)

type Kind int

const (
	KindConfig Kind = iota + 1
	KindImage
	KindCopy
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindImage:
		return "image"
	case KindCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Error carries a user-facing message and the underlying cause.
// Error() only ever returns the message; the cause is reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind Kind) bool {
	var adErr *Error
	return errors.As(err, &adErr) && adErr.Kind == kind
}

// UserMessage returns the text that may be shown to an end user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var adErr *Error
	if errors.As(err, &adErr) && adErr.Message != "" {
		return adErr.Message
	}
	return MessageUnexpected
}
