package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"dogfeed/middleware"
	"dogfeed/models"
	"dogfeed/utils/errors"
)

// BreedCatalog is the catalog client surface the breed handler uses.
type BreedCatalog interface {
	ListBreeds(ctx context.Context) ([]string, error)
	RandomPhotoPerBreed(ctx context.Context, breeds []string) ([]models.DogPhoto, error)
}

// SelectionStore holds per-user favourite-breed selections.
type SelectionStore interface {
	Put(userID string, breeds []string) error
	Get(userID string) []string
}

type BreedHandler struct {
	catalog   BreedCatalog
	selection SelectionStore
}

type FeedResponse struct {
	Photos []models.DogPhoto `json:"photos"`
	Breeds []string          `json:"breeds"`
	Count  int               `json:"count"`
}

func NewBreedHandler(catalog BreedCatalog, selection SelectionStore) *BreedHandler {
	return &BreedHandler{catalog: catalog, selection: selection}
}

func (h *BreedHandler) GetBreeds(w http.ResponseWriter, r *http.Request) {
	breeds, err := h.catalog.ListBreeds(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"breeds": breeds, "count": len(breeds)})
}

// PutSelection replaces the user's favourite breeds. Validation failures
// come back as field errors so the onboarding form can render them inline.
func (h *BreedHandler) PutSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input models.BreedSelection
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.selection.Put(userID, input.Breeds); err != nil {
		if fieldErrs, ok := err.(errors.FieldErrors); ok {
			middleware.WriteFieldErrors(w, fieldErrs)
			return
		}
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"breeds": h.selection.Get(userID)})
}

// GetFeed fetches a fresh random photo for each selected breed. With no
// selection the feed is empty and no catalog request is made.
func (h *BreedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	breeds := h.selection.Get(userID)
	photos, err := h.catalog.RandomPhotoPerBreed(r.Context(), breeds)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(FeedResponse{
		Photos: photos,
		Breeds: breeds,
		Count:  len(photos),
	})
}
