package cache

import "errors"

var (
	ErrClosed      = errors.New("context cache is closed")
	ErrLoaderPanic = errors.New("loader panicked")
)
