package services

import (
	"sync"

	"dogfeed/utils/errors"
)

// maxFavouriteBreeds caps the onboarding selection at three breeds.
const maxFavouriteBreeds = 3

// SelectionService holds each user's favourite-breed selection in memory
// for the lifetime of the process. Nothing here is persisted: a restart
// sends everyone back through onboarding, exactly like a page reload.
type SelectionService struct {
	mu         sync.RWMutex
	selections map[string][]string
}

func NewSelectionService() *SelectionService {
	return &SelectionService{
		selections: make(map[string][]string),
	}
}

// Put validates and stores the user's selection, replacing any previous
// one atomically. 1-3 entries, each non-empty; duplicates are allowed.
func (s *SelectionService) Put(userID string, breeds []string) error {
	if len(breeds) == 0 {
		return errors.FieldErrors{errors.FieldBreeds: "Select at least one breed"}
	}
	if len(breeds) > maxFavouriteBreeds {
		return errors.FieldErrors{errors.FieldBreeds: "Select at most 3 breeds"}
	}
	for _, breed := range breeds {
		if breed == "" {
			return errors.FieldErrors{errors.FieldBreeds: "Dog Breed can't be empty"}
		}
	}

	stored := make([]string, len(breeds))
	copy(stored, breeds)

	s.mu.Lock()
	s.selections[userID] = stored
	s.mu.Unlock()
	return nil
}

// Get returns the user's current selection in submitted order, or an
// empty slice if the user has not completed onboarding yet.
func (s *SelectionService) Get(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.selections[userID]
	breeds := make([]string, len(stored))
	copy(breeds, stored)
	return breeds
}
