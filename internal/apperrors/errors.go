package apperrors

// =============================================================================
// Error Codes
// =============================================================================

type ErrorCode string

const (
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrorCodeConflict            ErrorCode = "CONFLICT"
	ErrorCodeRoomNotFound        ErrorCode = "ROOM_NOT_FOUND"
	ErrorCodeRoomPrivate         ErrorCode = "ROOM_PRIVATE"
	ErrorCodeSongNotFound        ErrorCode = "SONG_NOT_FOUND"
	ErrorCodeQueueEntryNotFound  ErrorCode = "QUEUE_ENTRY_NOT_FOUND"
	ErrorCodeEmailTaken          ErrorCode = "EMAIL_TAKEN"
	ErrorCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrorCodeAuthTokenExpired    ErrorCode = "AUTH_TOKEN_EXPIRED"
	ErrorCodeAuthTokenInvalid    ErrorCode = "AUTH_TOKEN_INVALID"
	ErrorCodeSpotifyNotLinked    ErrorCode = "SPOTIFY_NOT_LINKED"
	ErrorCodeSpotifyTokenExpired ErrorCode = "SPOTIFY_TOKEN_EXPIRED"
	ErrorCodeSpotifyAPIError     ErrorCode = "SPOTIFY_API_ERROR"
	ErrorCodeLinkStateInvalid    ErrorCode = "LINK_STATE_INVALID"
	ErrorCodeLinkStateExpired    ErrorCode = "LINK_STATE_EXPIRED"
)

// ErrorType categorizes errors following Stripe API conventions.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates invalid parameters, missing required fields, etc.
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAPIError indicates an internal API error.
	ErrorTypeAPIError ErrorType = "api_error"
	// ErrorTypeAuthError indicates authentication or authorization failure.
	ErrorTypeAuthError ErrorType = "authentication_error"
)

// ErrorBody is the serialized error payload.
// Format: {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type ErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (err *AppError) Error() string {
	return err.Message
}

// ErrorBody returns the serializable error payload.
func (err *AppError) ErrorBody() ErrorBody {
	errType := ErrorTypeAPIError
	switch {
	case err.StatusCode == 401 || err.StatusCode == 403:
		errType = ErrorTypeAuthError
	case err.StatusCode >= 400 && err.StatusCode < 500:
		errType = ErrorTypeInvalidRequest
	}

	return ErrorBody{
		Type:    errType,
		Code:    string(err.Code),
		Message: err.Message,
	}
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400, details)
}

func NewUnauthorizedError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeUnauthorized
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 401, nil)
}

func NewForbiddenError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeForbidden
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 403, nil)
}

func NewNotFoundError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeNotFound
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 404, nil)
}

// NewNotFoundResource builds a 404 for a named resource and id.
func NewNotFoundResource(resource, id string) *AppError {
	message := resource + " not found"
	details := map[string]any{
		"resource": resource,
	}
	if id != "" {
		message = resource + " not found: " + id
		details["id"] = id
	}
	return NewAppError(ErrorCodeNotFound, message, 404, details)
}

func NewConflictError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeConflict
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 409, nil)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500, nil)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("Internal server error")
}
