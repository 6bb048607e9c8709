package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/errors"
)

// maxErrorBody caps how much of an error response is kept in the cause.
const maxErrorBody = 4 << 10

// transportError maps a failed round trip. A canceled or expired ctx is
// returned as is so callers see context.Canceled/DeadlineExceeded.
func transportError(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.TransientBackend(name, err)
}

// StatusError maps a non-2xx answer: 429 and 5xx are transient, anything
// else is a permanent rejection of the input.
func StatusError(name string, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	cause := fmt.Errorf("%s: status %d: %s", name, status, strings.TrimSpace(string(body)))
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return errors.TransientBackend(name, cause)
	}
	return errors.PermanentInput(name+" rejected the request", cause)
}
