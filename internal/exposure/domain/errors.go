package exposure

import "errors"

var (
	// ErrInvalidSeverity is returned when a severity label cannot be parsed.
	ErrInvalidSeverity = errors.New("exposure: invalid severity")
	// ErrWearableNotFound is returned when a wearable display id is unknown.
	ErrWearableNotFound = errors.New("exposure: wearable not found")
	// ErrOrganizationNotFound is returned when the wearable's organization is missing.
	ErrOrganizationNotFound = errors.New("exposure: organization not found")
	// ErrGroupingInProgress is returned when another grouping run holds the wearable lock.
	ErrGroupingInProgress = errors.New("exposure: grouping already in progress")
)
