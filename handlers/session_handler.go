package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"dogfeed/middleware"
	"dogfeed/session"
	"dogfeed/utils/errors"
)

// SessionHandler streams session state to the client. It is deliberately
// open to anonymous callers: the first event on the stream is what tells
// the client whether a user is signed in or a redirect to login is due.
type SessionHandler struct {
	identity session.AuthWatcher
	profile  session.ProfileSync
}

func NewSessionHandler(identity session.AuthWatcher, profile session.ProfileSync) *SessionHandler {
	return &SessionHandler{identity: identity, profile: profile}
}

// Watch serves the authenticated layout's event stream over SSE. One
// session manager lives per connection; disconnecting detaches it, which
// cancels both underlying subscriptions.
func (h *SessionHandler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, errors.ErrInternal)
		return
	}

	token := r.URL.Query().Get("token")
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}

	manager := session.NewManager(h.identity, h.profile)
	if err := manager.Attach(r.Context(), token); err != nil {
		log.Printf("Failed to attach session: %v", err)
		middleware.WriteError(w, errors.ErrInternal)
		return
	}
	defer manager.Detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-manager.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Failed to marshal session event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
