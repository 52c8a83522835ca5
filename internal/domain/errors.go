package domain

import "errors"

var (
	// ErrRecordNotFound indicates the requested retry record does not exist.
	ErrRecordNotFound = errors.New("retry record not found")

	// ErrInvalidNotification indicates the notification failed validation.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrInvalidConfig indicates a retry configuration failed validation.
	ErrInvalidConfig = errors.New("invalid retry configuration")

	// ErrRetriesExhausted indicates a notification used up all retry attempts.
	ErrRetriesExhausted = errors.New("retry attempts exhausted")

	// ErrCycleInProgress indicates a drain cycle is already running.
	ErrCycleInProgress = errors.New("processing cycle already in progress")

	// ErrDeliveryFailed indicates the push gateway rejected a delivery.
	ErrDeliveryFailed = errors.New("delivery failed")
)
