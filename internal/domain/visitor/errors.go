package visitor

import "errors"

var (
	ErrCaptureNotFound = errors.New("visitor capture not found")
)
