package settings

import "errors"

var (
	ErrInvalidCategory  = errors.New("settings: invalid category")
	ErrInvalidThreshold = errors.New("settings: threshold must not be negative")
	ErrWearableMismatch = errors.New("settings: wearable belongs to another organization")
)
