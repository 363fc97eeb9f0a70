package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pushgate/internal/audit"
)

// handleKick closes every connection of a user.
func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.manager.Kick(uid); err != nil {
		writeManagerError(w, err, "")
		return
	}
	s.logger.Info("user kicked", "uid", uid)
	s.record("kick", audit.EntityUser, uid, uid, nil)
	writeSuccess(w, nil)
}

// handleLogout closes every connection opened with a session token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "authtoken")
	if err := s.manager.Logout(token); err != nil {
		writeManagerError(w, err, "")
		return
	}
	s.logger.Info("session logged out")
	s.record("logout", audit.EntityAuthToken, "", "", nil)
	writeSuccess(w, nil)
}

// handleSessions lists a user's registered connections.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	conns, err := s.manager.Connections(uid)
	if err != nil {
		writeManagerError(w, err, "")
		return
	}
	writeSuccess(w, map[string]any{
		"online":      s.manager.IsOnline(uid),
		"connections": conns,
	})
}

// handleAddMember adds an online user to an existing channel.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	uid := chi.URLParam(r, "uid")
	if err := s.manager.AddMember(channel, uid); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("join", audit.EntityChannel, strings.ToLower(channel), uid, nil)
	writeSuccess(w, nil)
}

// handleRemoveMember removes a user from a channel.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	uid := chi.URLParam(r, "uid")
	if err := s.manager.RemoveMember(channel, uid); err != nil {
		writeManagerError(w, err, channel)
		return
	}
	s.record("leave", audit.EntityChannel, strings.ToLower(channel), uid, nil)
	writeSuccess(w, nil)
}

// handleSetPresenceList replaces the users whose presence uid may see.
// uidlist is comma separated.
func (s *Server) handleSetPresenceList(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	list := strings.Split(chi.URLParam(r, "uidlist"), ",")
	if err := s.manager.SetPresenceList(uid, list); err != nil {
		writeManagerError(w, err, "")
		return
	}
	s.record("update", audit.EntityPresence, uid, uid, map[string]any{"watching": len(list)})
	writeSuccess(w, nil)
}

// handleGetPresenceList returns the users whose presence uid may see.
func (s *Server) handleGetPresenceList(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	list, err := s.manager.PresenceList(uid)
	if err != nil {
		writeManagerError(w, err, "")
		return
	}
	writeSuccess(w, map[string]any{"uids": list})
}
