package error

import "errors"

var ErrTypeAssertMismatch = errors.New("value in context did not have the expected type")
