package model

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("appointment not found")
	ErrSlotConflict = errors.New("slot already has an approved appointment")
	ErrTransient    = errors.New("storage temporarily unavailable")
)
