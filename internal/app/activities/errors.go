package activities

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func errUnauthenticated() *Error {
	return &Error{
		Status:  401,
		Code:    "UNAUTHENTICATED",
		Message: "Authentication is required.",
	}
}

func errNotFound() *Error {
	return &Error{
		Status:  404,
		Code:    "ACTIVITY_NOT_FOUND",
		Message: "Activity not found.",
	}
}

func errValidation(details map[string]any) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid activity",
		Details: details,
	}
}
