package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/pushgate/internal/push"
)

// Response status values.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Response messages. Backend modules match on these strings.
const (
	msgInvalidUserID     = "Invalid uid."
	msgInvalidName       = "Invalid channel name."
	msgNoActiveSession   = "No active sessions for uid."
	msgNotFound          = "Non-existent channel name."
	msgAlreadyExists     = "Channel name '%s' already exists."
	msgEmptyList         = "Empty uid list."
	msgInvalidParameters = "Invalid parameters."
	msgMissingParameters = "Required parameters are missing."
	msgInvalidServiceKey = "Invalid service key."
	msgInternal          = "Internal server error."
	msgRouteNotFound     = "Not Found."
)

// Failure is the body of every failed /nodejs request.
type Failure struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeSuccess writes {"status":"success"} merged with extra fields.
func writeSuccess(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"status": statusSuccess}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeFailed writes a failure body with the given HTTP status.
func writeFailed(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Failure{Status: statusFailed, Error: message})
}

// writeMissingParameters writes the 400 response for absent required input.
func writeMissingParameters(w http.ResponseWriter) {
	writeFailed(w, http.StatusBadRequest, msgMissingParameters)
}

// writeManagerError translates a push.Manager error into a response.
// channel is only used to fill in the AlreadyExists message.
func writeManagerError(w http.ResponseWriter, err error, channel string) {
	status, message := describeError(err, channel)
	writeFailed(w, status, message)
}

// describeError maps an error kind to its HTTP status and message.
func describeError(err error, channel string) (int, string) {
	switch push.KindOf(err) {
	case push.KindInvalidUserID:
		return http.StatusBadRequest, msgInvalidUserID
	case push.KindInvalidName:
		return http.StatusBadRequest, msgInvalidName
	case push.KindEmptyList:
		return http.StatusBadRequest, msgEmptyList
	case push.KindInvalidParameters:
		return http.StatusBadRequest, msgInvalidParameters
	case push.KindNotFound:
		return http.StatusNotFound, msgNotFound
	case push.KindAlreadyExists:
		return http.StatusConflict, fmt.Sprintf(msgAlreadyExists, channel)
	case push.KindNoActiveSession:
		return http.StatusConflict, msgNoActiveSession
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeNotFound answers unknown routes the way backend modules expect.
func writeNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	//nolint:errcheck // Best-effort write to response
	w.Write([]byte(msgRouteNotFound))
}

// errBodyRequired is returned by readJSON for an empty request body.
var errBodyRequired = errors.New("request body is required")
