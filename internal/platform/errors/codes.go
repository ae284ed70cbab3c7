// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Transition errors
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeConcurrentConflict Code = "CONCURRENT_CONFLICT"

	// Event validation errors
	CodeEventInvalid       Code = "EVENT_INVALID"
	CodeEventTypeInvalid   Code = "EVENT_TYPE_INVALID"
	CodeEventRoleInvalid   Code = "EVENT_ROLE_INVALID"
	CodeDuplicateEvent     Code = "DUPLICATE_EVENT"
	CodeShipmentIDRequired Code = "SHIPMENT_ID_REQUIRED"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeCorruptRecord  Code = "CORRUPT_RECORD"
	CodeStorageFailure Code = "STORAGE_FAILURE"
)
