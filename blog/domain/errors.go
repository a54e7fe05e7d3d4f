package domain

import "errors"

// PostError is the only failure shape that reaches the render layer.
type PostError uint8

const (
	ErrInvalidIdentifier PostError = iota + 1
	ErrPostNotFound
	ErrServerError
)

func (e PostError) Error() string {
	switch e {
	case ErrInvalidIdentifier:
		return "invalid post identifier"
	case ErrPostNotFound:
		return "post not found"
	case ErrServerError:
		return "server error"
	default:
		return "unknown post error"
	}
}

// Message is the reader-facing text for the error.
func (e PostError) Message() string {
	switch e {
	case ErrInvalidIdentifier:
		return "That doesn't look like a valid post ID. Check the URL and try again."
	case ErrPostNotFound:
		return "Couldn't find that post. It may have been moved or deleted."
	default:
		return "Something went wrong while loading this post. Please try again later."
	}
}

// Classify normalizes any error to a PostError. Errors that are not already a
// PostError are treated as server errors.
func Classify(err error) PostError {
	var pe PostError
	if errors.As(err, &pe) {
		switch pe {
		case ErrInvalidIdentifier, ErrPostNotFound, ErrServerError:
			return pe
		}
	}
	return ErrServerError
}
