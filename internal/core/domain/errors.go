package domain

import "errors"

var (
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrBackendUnavailable  = errors.New("backend unavailable")
	ErrMalformedCredential = errors.New("malformed cached credential")
	ErrMalformedResponse   = errors.New("malformed backend response")
	ErrSuperseded          = errors.New("superseded by a newer request")
)

// BackendError carries a rejection message from the backend, surfaced verbatim.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Unwrap lets callers match the rejection class with errors.Is.
func (e *BackendError) Unwrap() error {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return ErrUnauthenticated
	case e.StatusCode == 409:
		return ErrUserExists
	case e.StatusCode >= 500:
		return ErrBackendUnavailable
	case e.StatusCode >= 400:
		return ErrInvalidCredentials
	}
	return nil
}

// UserMessage returns the text shown to the user for a failed auth request.
func UserMessage(err error) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	switch {
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrMalformedResponse):
		return "service unavailable, try again later"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return "invalid credentials"
	case errors.Is(err, ErrUserExists):
		return "user already exists"
	}
	return err.Error()
}
