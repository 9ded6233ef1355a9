package student

import "errors"

var ErrNotFound = errors.New("student not found")
