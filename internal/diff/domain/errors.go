package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a document does not exist at a ref.
type NotFoundError struct {
	Path string
	Ref  string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: not found", e.Path)
	}
	return fmt.Sprintf("%s: not found at %s", e.Path, e.Ref)
}

// NewNotFoundError returns a *NotFoundError for path at ref.
func NewNotFoundError(path, ref string) error {
	return &NotFoundError{Path: path, Ref: ref}
}

// IsNotFound reports whether any error in err's chain is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
