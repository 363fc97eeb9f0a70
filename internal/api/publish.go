package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nerrad567/pushgate/internal/push"
)

// PublishRequest is the body of /nodejs/publish and
// /nodejs/content/token/message.
//
// When data is absent the whole request body is delivered as the message
// data, so backends that post flat message objects keep working.
type PublishRequest struct {
	Channel   string          `json:"channel"`
	Broadcast bool            `json:"broadcast"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// readJSON reads the request body and decodes it into v. The raw bytes are
// returned for handlers that keep the original document.
func readJSON(r *http.Request, v any) ([]byte, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errBodyRequired
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return raw, nil
}

// writeBodyError answers a request whose body could not be read.
func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeFailed(w, http.StatusRequestEntityTooLarge, msgInvalidParameters)
	case errors.Is(err, errBodyRequired):
		writeMissingParameters(w)
	default:
		writeFailed(w, http.StatusBadRequest, msgInvalidParameters)
	}
}

func (req PublishRequest) message(raw []byte) push.Message {
	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(raw)
	}
	return push.Message{Type: req.Type, Data: data}
}

// handlePublish delivers a message to a channel's members or, with
// broadcast set, to every connection.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	raw, err := readJSON(r, &req)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Channel == "" && !req.Broadcast {
		writeMissingParameters(w)
		return
	}

	msg := req.message(raw)

	if req.Broadcast {
		sent := s.manager.Broadcast(msg)
		s.logger.Debug("broadcast published", "sent", sent)
		writeSuccess(w, map[string]any{"sent": sent})
		return
	}

	sent, err := s.manager.PublishToChannel(req.Channel, msg)
	if err != nil {
		writeManagerError(w, err, req.Channel)
		return
	}
	s.logger.Debug("channel message published", "channel", req.Channel, "sent", sent)
	writeSuccess(w, map[string]any{"sent": sent})
}

// handleContentMessage publishes to a channel guarded by a content token.
func (s *Server) handleContentMessage(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	raw, err := readJSON(r, &req)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Channel == "" {
		writeMissingParameters(w)
		return
	}

	sent, err := s.manager.PublishToContentChannel(req.Channel, req.message(raw))
	if err != nil {
		writeManagerError(w, err, req.Channel)
		return
	}
	writeSuccess(w, map[string]any{"sent": sent})
}
