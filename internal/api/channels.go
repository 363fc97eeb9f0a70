package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pushgate/internal/audit"
)

// handleCreateChannel creates an empty channel.
func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if err := s.manager.CreateChannel(channel); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("create", audit.EntityChannel, strings.ToLower(channel), "", nil)
	writeSuccess(w, nil)
}

// handleRemoveChannel deletes a channel and unsubscribes its members.
func (s *Server) handleRemoveChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if err := s.manager.RemoveChannel(channel); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("delete", audit.EntityChannel, strings.ToLower(channel), "", nil)
	writeSuccess(w, nil)
}

// handleCheckChannel reports whether a channel exists.
func (s *Server) handleCheckChannel(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	exists, err := s.manager.ChannelExists(channel)
	if err != nil {
		writeManagerError(w, err, channel)
		return
	}
	writeSuccess(w, map[string]any{"result": exists})
}

// handleChannelMembers lists a channel's members.
func (s *Server) handleChannelMembers(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	members, err := s.manager.ChannelMembers(channel)
	if err != nil {
		writeManagerError(w, err, channel)
		return
	}
	writeSuccess(w, map[string]any{"uids": members})
}

// handleAddAuthToken grants a session token access to a channel.
func (s *Server) handleAddAuthToken(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	token := chi.URLParam(r, "authToken")
	if err := s.manager.AddAuthToken(channel, token); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("grant", audit.EntityAuthToken, strings.ToLower(channel), "", nil)
	writeSuccess(w, nil)
}

// handleRemoveAuthToken revokes a session token's access to a channel.
func (s *Server) handleRemoveAuthToken(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	token := chi.URLParam(r, "authToken")
	if err := s.manager.RemoveAuthToken(channel, token); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("revoke", audit.EntityAuthToken, strings.ToLower(channel), "", nil)
	writeSuccess(w, nil)
}

// contentTokenRequest is the body of the content token endpoints. The full
// document is stored as the token's payload.
type contentTokenRequest struct {
	Channel string `json:"channel"`
	Token   string `json:"token"`
}

// handleSetContentToken installs a channel's content token, creating the
// channel if needed.
func (s *Server) handleSetContentToken(w http.ResponseWriter, r *http.Request) {
	var req contentTokenRequest
	raw, err := readJSON(r, &req)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Channel == "" || req.Token == "" {
		writeMissingParameters(w)
		return
	}

	if err := s.manager.SetContentToken(req.Channel, req.Token, raw); err != nil {
		writeManagerError(w, err, req.Channel)
		return
	}
	s.record("set", audit.EntityContentToken, strings.ToLower(req.Channel), "", nil)
	writeSuccess(w, nil)
}

// handleContentTokenUsers lists the users holding a channel's content token.
func (s *Server) handleContentTokenUsers(w http.ResponseWriter, r *http.Request) {
	var req contentTokenRequest
	if _, err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Channel == "" {
		writeMissingParameters(w)
		return
	}

	users, err := s.manager.ContentTokenUsers(req.Channel)
	if err != nil {
		writeManagerError(w, err, req.Channel)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
