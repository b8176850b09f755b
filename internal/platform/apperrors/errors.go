package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	NotFound        = HTTPError{http.StatusNotFound, errors.New("not found")}
	Conflict        = HTTPError{http.StatusConflict, errors.New("conflict")}
	InvalidArgument = HTTPError{http.StatusBadRequest, errors.New("invalid argument")}
)

// HTTPError is an error that knows the HTTP status it should be reported as.
// Two HTTPErrors match under errors.Is when their codes are equal, so
// errors.Is(err, NotFound) holds for NotFound.WithMessage(...) too.
type HTTPError struct {
	Code int
	Err  error
}

func (h HTTPError) Error() string {
	return h.Err.Error()
}

func (h HTTPError) Unwrap() error {
	return h.Err
}

func (h HTTPError) Is(target error) bool {
	t, ok := target.(HTTPError)
	return ok && t.Code == h.Code
}

// WithMessage returns a copy of h carrying a formatted message.
func (h HTTPError) WithMessage(format string, args ...interface{}) HTTPError {
	return HTTPError{Code: h.Code, Err: fmt.Errorf(format, args...)}
}
