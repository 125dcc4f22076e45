package earthengine

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/engine"
)

// apiError turns a non-200 response into a typed engine error. The
// structured google.rpc status is authoritative; when it is absent the
// message text is scanned as a best-effort fallback, and anything still
// unrecognized passes through unclassified.
func apiError(op string, statusCode int, body []byte) error {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	message := string(body)
	status := ""
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
		status = payload.Error.Status
	}

	raw := eris.Errorf("ee: %s: HTTP %d: %s", op, statusCode, message)

	switch status {
	case "RESOURCE_EXHAUSTED":
		return engine.ResourceExceededError(op, raw)
	case "DEADLINE_EXCEEDED":
		return engine.TimeoutError(op, raw)
	case "NOT_FOUND":
		return engine.NotFoundError(op, raw)
	}

	switch engine.ClassifyMessage(message) {
	case engine.KindResourceExceeded:
		return engine.ResourceExceededError(op, raw)
	case engine.KindTimeout:
		return engine.TimeoutError(op, raw)
	case engine.KindNotFound:
		return engine.NotFoundError(op, raw)
	default:
		return raw
	}
}
