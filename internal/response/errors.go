package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrNotResourceOwner ErrCode = "NOT_RESOURCE_OWNER"
	ErrAuthorAccessOnly ErrCode = "AUTHOR_ACCESS_ONLY"
	ErrTakerAccessOnly  ErrCode = "TAKER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrPoolCycle      ErrCode = "POOL_REFERENCE_CYCLE"
	ErrScheduleNeeded ErrCode = "SCHEDULE_REQUIRED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrExamNotOpen        ErrCode = "EXAM_NOT_OPEN"
	ErrAlreadyRegistered  ErrCode = "ALREADY_REGISTERED"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrResultsUnavailable ErrCode = "RESULTS_UNAVAILABLE"
	ErrCodeSpaceExhausted ErrCode = "CODE_SPACE_EXHAUSTED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotResourceOwner:
		return "You are unauthorized to access this resource."
	case ErrAuthorAccessOnly:
		return "This resource is restricted to exam authors."
	case ErrTakerAccessOnly:
		return "This resource is restricted to exam takers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."
	case ErrPoolCycle:
		return "The pool references would form a cycle."
	case ErrScheduleNeeded:
		return "A publish requires both an opening and a closing instant."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrDependencyExists:
		return "The resource is still referenced by other data and cannot be deleted."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrExamNotOpen:
		return "This exam is not currently open."
	case ErrAlreadyRegistered:
		return "You are already registered to this exam."
	case ErrAlreadySubmitted:
		return "Your answers for this exam were already submitted."
	case ErrResultsUnavailable:
		return "Results for this exam are not yet available."
	case ErrCodeSpaceExhausted:
		return "Could not allocate a unique exam code. Please try again."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
