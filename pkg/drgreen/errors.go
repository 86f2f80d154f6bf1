package drgreen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
)

// UpstreamError is a non-2xx response from the Dr. Green API.
type UpstreamError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("drgreen %s %s: status %d: %s", e.Method, e.Path, e.Status, logger.RedactJSON(e.Body))
}

// Retryable reports whether the status is in the retryable set.
func (e *UpstreamError) Retryable() bool {
	return IsRetryableStatus(e.Status)
}

// Message extracts a human readable message from the upstream body, if any.
func (e *UpstreamError) Message() string {
	var body struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	switch msg := body.Message.(type) {
	case string:
		return logger.RedactText(msg)
	case []any:
		parts := make([]string, 0, len(msg))
		for _, part := range msg {
			if s, ok := part.(string); ok {
				parts = append(parts, s)
			}
		}
		return logger.RedactText(strings.Join(parts, "; "))
	}
	return logger.RedactText(body.Error)
}

// AsUpstreamError returns the UpstreamError in err's chain, if any.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}

func wrapFailure(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if upstream, ok := AsUpstreamError(err); ok {
		message := upstream.Message()
		if message == "" {
			message = fmt.Sprintf("%s failed with status %d", action, upstream.Status)
		}
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, message).
			WithDetails(map[string]any{"status": upstream.Status, "retryable": upstream.Retryable()})
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, fmt.Sprintf("%s: upstream unreachable", action)).
		WithDetails(map[string]any{"retryable": IsRetryableError(err)})
}
