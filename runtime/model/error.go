package model

import (
	"errors"
	"fmt"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/union"
)

// ErrorKind classifies API failures into a small set of categories suitable
// for retry and UX decisions.
type ErrorKind string

const (
	// ErrorKindAuth indicates authentication or authorization failures.
	ErrorKindAuth ErrorKind = "auth"

	// ErrorKindInvalidRequest indicates the request is invalid and retrying
	// without changing it will not succeed.
	ErrorKindInvalidRequest ErrorKind = "invalid_request"

	// ErrorKindRateLimited indicates the API is throttling requests.
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindUnavailable indicates a transient failure where a retry may
	// succeed.
	ErrorKindUnavailable ErrorKind = "unavailable"

	// ErrorKindUnknown indicates an error type this package does not know.
	ErrorKindUnknown ErrorKind = "unknown"
)

type (
	// APIErrorDetailVariant is implemented by every API error type.
	APIErrorDetailVariant interface {
		isAPIErrorDetail()
		message() string
	}

	// APIErrorDetail is the "error" object of an API error payload. The union
	// is open so error types added by the API still surface their payload.
	APIErrorDetail struct {
		union.Value[APIErrorDetailVariant]
	}

	// InvalidRequestError reports a malformed or unsupported request.
	InvalidRequestError struct {
		Message string `json:"message"`
	}

	// AuthenticationError reports a missing or invalid API key.
	AuthenticationError struct {
		Message string `json:"message"`
	}

	// PermissionError reports a key without access to the resource.
	PermissionError struct {
		Message string `json:"message"`
	}

	// NotFoundError reports an unknown resource.
	NotFoundError struct {
		Message string `json:"message"`
	}

	// RequestTooLargeError reports a request exceeding the size limit.
	RequestTooLargeError struct {
		Message string `json:"message"`
	}

	// RateLimitError reports that the account hit a rate limit.
	RateLimitError struct {
		Message string `json:"message"`
	}

	// InternalAPIError reports an unexpected server failure.
	InternalAPIError struct {
		Message string `json:"message"`
	}

	// OverloadedError reports temporary overload.
	OverloadedError struct {
		Message string `json:"message"`
	}

	// APIError is an error payload returned by the API, either as an HTTP
	// response body or as an "error" stream event.
	APIError struct {
		Detail     APIErrorDetail `json:"error"`
		RequestID  string         `json:"request_id,omitempty"`
		HTTPStatus int            `json:"-"`
	}
)

var (
	apiErrorDetails = union.NewKeyed("type", []union.Variant[APIErrorDetailVariant]{
		union.Case[APIErrorDetailVariant, InvalidRequestError]("invalid_request_error"),
		union.Case[APIErrorDetailVariant, AuthenticationError]("authentication_error"),
		union.Case[APIErrorDetailVariant, PermissionError]("permission_error"),
		union.Case[APIErrorDetailVariant, NotFoundError]("not_found_error"),
		union.Case[APIErrorDetailVariant, RequestTooLargeError]("request_too_large"),
		union.Case[APIErrorDetailVariant, RateLimitError]("rate_limit_error"),
		union.Case[APIErrorDetailVariant, InternalAPIError]("api_error"),
		union.Case[APIErrorDetailVariant, OverloadedError]("overloaded_error"),
	}, union.Named("APIErrorDetail"), union.Open())

	errorKinds = union.NewProjection(apiErrorDetails, "kind",
		union.Field[APIErrorDetailVariant](func(InvalidRequestError) ErrorKind { return ErrorKindInvalidRequest }),
		union.Field[APIErrorDetailVariant](func(AuthenticationError) ErrorKind { return ErrorKindAuth }),
		union.Field[APIErrorDetailVariant](func(PermissionError) ErrorKind { return ErrorKindAuth }),
		union.Field[APIErrorDetailVariant](func(NotFoundError) ErrorKind { return ErrorKindInvalidRequest }),
		union.Field[APIErrorDetailVariant](func(RequestTooLargeError) ErrorKind { return ErrorKindInvalidRequest }),
		union.Field[APIErrorDetailVariant](func(RateLimitError) ErrorKind { return ErrorKindRateLimited }),
		union.Field[APIErrorDetailVariant](func(InternalAPIError) ErrorKind { return ErrorKindUnavailable }),
		union.Field[APIErrorDetailVariant](func(OverloadedError) ErrorKind { return ErrorKindUnavailable }),
	)
)

// NewAPIError returns an API error holding the given detail.
func NewAPIError(detail APIErrorDetailVariant, requestID string, httpStatus int) *APIError {
	return &APIError{Detail: APIErrorDetail{union.Of(detail)}, RequestID: requestID, HTTPStatus: httpStatus}
}

// ParseAPIError decodes an API error payload. httpStatus is recorded as is
// and may be zero for stream events.
func ParseAPIError(httpStatus int, body []byte) (*APIError, error) {
	var e APIError
	if err := jsonx.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode error payload: %w", err)
	}
	if e.Detail.IsZero() {
		return nil, errors.New("decode error payload: missing error object")
	}
	e.HTTPStatus = httpStatus
	return &e, nil
}

// UnmarshalJSON decodes the error type named by "type".
func (d *APIErrorDetail) UnmarshalJSON(data []byte) error {
	return decodeInto(apiErrorDetails, data, &d.Value)
}

// Type returns the error type reported by the API.
func (d APIErrorDetail) Type() string {
	tag, _ := apiErrorDetails.TagOf(d.Value)
	return tag
}

// Message returns the human readable error message, including the message
// of error types this package does not know.
func (d APIErrorDetail) Message() string {
	if v, ok := d.Known(); ok {
		return v.message()
	}
	if d.IsUnknown() {
		var body struct {
			Message string `json:"message"`
		}
		if jsonx.Unmarshal(d.Raw(), &body) == nil {
			return body.Message
		}
	}
	return ""
}

// Kind returns the coarse-grained classification of the error. Unknown error
// types fall back on the HTTP status when there is one.
func (e *APIError) Kind() ErrorKind {
	if k, ok := errorKinds.Get(e.Detail.Value); ok {
		return k
	}
	switch {
	case e.HTTPStatus == 401 || e.HTTPStatus == 403:
		return ErrorKindAuth
	case e.HTTPStatus == 429:
		return ErrorKindRateLimited
	case e.HTTPStatus >= 500:
		return ErrorKindUnavailable
	case e.HTTPStatus >= 400:
		return ErrorKindInvalidRequest
	}
	return ErrorKindUnknown
}

// Type returns the error type reported by the API.
func (e *APIError) Type() string { return e.Detail.Type() }

// Message returns the error message reported by the API.
func (e *APIError) Message() string { return e.Detail.Message() }

// Retryable reports whether retrying the call may succeed without changing
// the request.
func (e *APIError) Retryable() bool {
	switch e.Kind() {
	case ErrorKindRateLimited, ErrorKindUnavailable:
		return true
	}
	return false
}

func (e *APIError) Error() string {
	status := ""
	if e.HTTPStatus > 0 {
		status = fmt.Sprintf(" %d", e.HTTPStatus)
	}
	msg := e.Message()
	if msg == "" {
		msg = "api error"
	}
	typ := e.Type()
	if typ == "" {
		typ = "error"
	}
	s := fmt.Sprintf("anthropic %s%s: %s: %s", e.Kind(), status, typ, msg)
	if e.RequestID != "" {
		s += " (request " + e.RequestID + ")"
	}
	return s
}

// MarshalJSON encodes the payload with its "error" discriminator.
func (e APIError) MarshalJSON() ([]byte, error) {
	type alias APIError
	return marshalTagged("error", alias(e))
}

// AsAPIError returns the first APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func (InvalidRequestError) isAPIErrorDetail()  {}
func (AuthenticationError) isAPIErrorDetail()  {}
func (PermissionError) isAPIErrorDetail()      {}
func (NotFoundError) isAPIErrorDetail()        {}
func (RequestTooLargeError) isAPIErrorDetail() {}
func (RateLimitError) isAPIErrorDetail()       {}
func (InternalAPIError) isAPIErrorDetail()     {}
func (OverloadedError) isAPIErrorDetail()      {}

func (e InvalidRequestError) message() string  { return e.Message }
func (e AuthenticationError) message() string  { return e.Message }
func (e PermissionError) message() string      { return e.Message }
func (e NotFoundError) message() string        { return e.Message }
func (e RequestTooLargeError) message() string { return e.Message }
func (e RateLimitError) message() string       { return e.Message }
func (e InternalAPIError) message() string     { return e.Message }
func (e OverloadedError) message() string      { return e.Message }

// MarshalJSON encodes the error with its "invalid_request_error" type.
func (e InvalidRequestError) MarshalJSON() ([]byte, error) {
	type alias InvalidRequestError
	return marshalTagged("invalid_request_error", alias(e))
}

// MarshalJSON encodes the error with its "authentication_error" type.
func (e AuthenticationError) MarshalJSON() ([]byte, error) {
	type alias AuthenticationError
	return marshalTagged("authentication_error", alias(e))
}

// MarshalJSON encodes the error with its "permission_error" type.
func (e PermissionError) MarshalJSON() ([]byte, error) {
	type alias PermissionError
	return marshalTagged("permission_error", alias(e))
}

// MarshalJSON encodes the error with its "not_found_error" type.
func (e NotFoundError) MarshalJSON() ([]byte, error) {
	type alias NotFoundError
	return marshalTagged("not_found_error", alias(e))
}

// MarshalJSON encodes the error with its "request_too_large" type.
func (e RequestTooLargeError) MarshalJSON() ([]byte, error) {
	type alias RequestTooLargeError
	return marshalTagged("request_too_large", alias(e))
}

// MarshalJSON encodes the error with its "rate_limit_error" type.
func (e RateLimitError) MarshalJSON() ([]byte, error) {
	type alias RateLimitError
	return marshalTagged("rate_limit_error", alias(e))
}

// MarshalJSON encodes the error with its "api_error" type.
func (e InternalAPIError) MarshalJSON() ([]byte, error) {
	type alias InternalAPIError
	return marshalTagged("api_error", alias(e))
}

// MarshalJSON encodes the error with its "overloaded_error" type.
func (e OverloadedError) MarshalJSON() ([]byte, error) {
	type alias OverloadedError
	return marshalTagged("overloaded_error", alias(e))
}
