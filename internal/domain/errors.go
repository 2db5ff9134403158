package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrTemplateEmpty means no usable subject or body remained after fallback.
	ErrTemplateEmpty = errors.New("template is empty")
	// ErrCompileFailure means the markup compiler produced no HTML.
	ErrCompileFailure = errors.New("template compilation failed")
)
