package api

// ErrorPayload is the additionalPayload of a failed response.
type ErrorPayload struct {
	Code   string       `json:"code"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Fail builds a failed response carrying code.
func Fail(message, code string) *Response {
	return Failure(message, &ErrorPayload{Code: code})
}
