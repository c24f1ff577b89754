package blog

import "errors"

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrTitleRequired = errors.New("title is required")
	ErrEmptyUpdate   = errors.New("nothing to update")
	ErrSlugExhausted = errors.New("could not derive a unique slug")
	ErrSlugConflict  = errors.New("slug already used")
)
