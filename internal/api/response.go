package api

// Response is the envelope every HTTP answer is wrapped in. Status and Message are
// set by whoever builds it; AdditionalPayload is stored and handed back untouched,
// so a mutable payload stays shared with its original owner.
//
// A Response carries no synchronization. Treat it as an immutable snapshot once it
// is shared between goroutines.
type Response struct {
	Status            bool   `json:"status"`
	Message           string `json:"message"`
	AdditionalPayload any    `json:"additionalPayload"`
}

// NewResponse builds an envelope from all three fields. It never fails.
func NewResponse(status bool, message string, additionalPayload any) *Response {
	return &Response{
		Status:            status,
		Message:           message,
		AdditionalPayload: additionalPayload,
	}
}

// Success is NewResponse(true, ...).
func Success(message string, additionalPayload any) *Response {
	return NewResponse(true, message, additionalPayload)
}

// Failure is NewResponse(false, ...).
func Failure(message string, additionalPayload any) *Response {
	return NewResponse(false, message, additionalPayload)
}

func (r *Response) GetStatus() bool {
	return r.Status
}

func (r *Response) SetStatus(status bool) {
	r.Status = status
}

func (r *Response) GetMessage() string {
	return r.Message
}

func (r *Response) SetMessage(message string) {
	r.Message = message
}

// GetAdditionalPayload returns the stored reference as-is.
func (r *Response) GetAdditionalPayload() any {
	return r.AdditionalPayload
}

func (r *Response) SetAdditionalPayload(additionalPayload any) {
	r.AdditionalPayload = additionalPayload
}

// WithStatus returns a copy of r with Status replaced. r is left untouched.
func (r *Response) WithStatus(status bool) *Response {
	c := *r
	c.Status = status
	return &c
}

// WithMessage returns a copy of r with Message replaced.
func (r *Response) WithMessage(message string) *Response {
	c := *r
	c.Message = message
	return &c
}

// WithAdditionalPayload returns a copy of r with the payload replaced. The payload
// itself is not copied.
func (r *Response) WithAdditionalPayload(additionalPayload any) *Response {
	c := *r
	c.AdditionalPayload = additionalPayload
	return &c
}

// Typed is the envelope with a compile-time payload type. It shares the wire
// format of Response.
type Typed[T any] struct {
	Status            bool   `json:"status"`
	Message           string `json:"message"`
	AdditionalPayload T      `json:"additionalPayload"`
}

func NewTyped[T any](status bool, message string, additionalPayload T) *Typed[T] {
	return &Typed[T]{
		Status:            status,
		Message:           message,
		AdditionalPayload: additionalPayload,
	}
}

// Untyped drops the payload type.
func (t *Typed[T]) Untyped() *Response {
	return NewResponse(t.Status, t.Message, t.AdditionalPayload)
}
