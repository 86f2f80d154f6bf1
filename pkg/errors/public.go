package errors

import stdErrors "errors"

// Public is the caller-facing view of an error.
type Public struct {
	Code       Code
	HTTPStatus int
	Message    string
	Details    any
}

// ToPublic maps err onto its public code, status and message. Untyped errors
// become INTERNAL. Messages of internal and dependency failures are replaced
// by the code's public message.
func ToPublic(err error) Public {
	if err == nil {
		err = stdErrors.New("unknown error")
	}
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, "unexpected error")
	}
	meta := MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case CodeValidation,
		CodeForbidden,
		CodeUnauthorized,
		CodeNotFound,
		CodeConflict,
		CodeStateConflict,
		CodeRateLimit,
		CodeUpstream:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	out := Public{Code: typed.Code(), HTTPStatus: meta.HTTPStatus, Message: msg}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}
