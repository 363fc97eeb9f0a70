package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeNotFound)

	// Client WebSocket (auth via signed token, validated in handler)
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	// Backend control API
	r.Route("/nodejs", func(r chi.Router) {
		r.Use(s.serviceKeyMiddleware)

		r.Post("/publish", s.handlePublish)
		r.Get("/health/check", s.handleHealthCheck)
		r.Post("/debug/toggle", s.handleDebugToggle)
		r.Get("/audit", s.handleListAuditLogs)

		r.Route("/user", func(r chi.Router) {
			r.Post("/kick/{uid}", s.handleKick)
			r.Post("/logout/{authtoken}", s.handleLogout)
			r.Get("/sessions/{uid}", s.handleSessions)
			r.Post("/channel/add/{channel}/{uid}", s.handleAddMember)
			r.Post("/channel/remove/{channel}/{uid}", s.handleRemoveMember)
			r.Post("/presence-list/{uid}/{uidlist}", s.handleSetPresenceList)
			r.Get("/presence-list/{uid}", s.handleGetPresenceList)
		})

		r.Route("/channel", func(r chi.Router) {
			r.Post("/add/{channel}", s.handleCreateChannel)
			r.Post("/remove/{channel}", s.handleRemoveChannel)
			r.Get("/check/{channel}", s.handleCheckChannel)
			r.Get("/members/{channel}", s.handleChannelMembers)
		})

		r.Post("/content/token", s.handleSetContentToken)
		r.Post("/content/token/users", s.handleContentTokenUsers)
		r.Post("/content/token/message", s.handleContentMessage)

		r.Route("/authtoken/channel", func(r chi.Router) {
			r.Post("/add/{channel}/{authToken}", s.handleAddAuthToken)
			r.Post("/remove/{channel}/{authToken}", s.handleRemoveAuthToken)
		})
	})

	return r
}
