package apperrors

// Error codes shared across the service.
const (
	ErrInternal       = "INTERNAL"
	ErrNotFound       = "NOT_FOUND"
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrForbidden      = "FORBIDDEN"
	ErrConflict       = "CONFLICT"
	ErrTimeout        = "TIMEOUT"
)
