package models

// DogPhoto pairs a breed with one random photo URL from the catalog.
// Fetched fresh on every feed request, never persisted.
type DogPhoto struct {
	Breed    string `json:"breed"`
	PhotoURL string `json:"photo_url"`
}

// BreedSelection is the 1-3 favourite breeds picked during onboarding.
// Held in memory for the current session only.
type BreedSelection struct {
	Breeds []string `json:"breeds"`
}
