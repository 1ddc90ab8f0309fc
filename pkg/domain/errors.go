package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyResponse     = errors.New("model returned neither content nor tool calls")
	ErrMaxRoundsExceeded = errors.New("tool call round limit exceeded")
	ErrUnsupportedModel  = errors.New("unsupported model")
)
