package calls

import "errors"

var (
	ErrNotFound   = errors.New("call not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("call already exists")
	ErrCapacity   = errors.New("active call limit reached")
)
