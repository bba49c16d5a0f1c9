package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"dogfeed/models"
	"dogfeed/utils/errors"

	"golang.org/x/time/rate"
)

const defaultCatalogBaseURL = "https://dog.ceo/api"

// DogService is the client for the public breed catalog. One instance is
// shared by all requests; outbound calls are rate limited so a busy
// dashboard cannot hammer the catalog.
type DogService struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

func NewDogService(httpClient *http.Client) *DogService {
	return &DogService{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		baseURL:    defaultCatalogBaseURL,
	}
}

type breedListResponse struct {
	Message map[string][]string `json:"message"`
	Status  string              `json:"status"`
}

type randomImageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ListBreeds returns the de-duplicated top-level breed names from the
// catalog, cased as the catalog serves them. Order is unspecified.
func (s *DogService) ListBreeds(ctx context.Context) ([]string, error) {
	var payload breedListResponse
	if err := s.getJSON(ctx, s.baseURL+"/breeds/list/all", &payload); err != nil {
		log.Printf("Failed to fetch breed list: %v", err)
		return nil, errors.ErrCatalogFetch
	}

	breeds := make([]string, 0, len(payload.Message))
	for breed := range payload.Message {
		breeds = append(breeds, breed)
	}
	return breeds, nil
}

// RandomPhotoPerBreed fetches one random photo per breed, one independent
// request each, all in flight at once. The result preserves the input
// order. If any single request fails the whole call fails with no partial
// results; the error does not single out a breed.
func (s *DogService) RandomPhotoPerBreed(ctx context.Context, breeds []string) ([]models.DogPhoto, error) {
	if len(breeds) == 0 {
		return []models.DogPhoto{}, nil
	}

	photos := make([]models.DogPhoto, len(breeds))
	fetchErrs := make([]error, len(breeds))

	var wg sync.WaitGroup
	for i, breed := range breeds {
		wg.Add(1)
		go func(i int, breed string) {
			defer wg.Done()
			var payload randomImageResponse
			err := s.getJSON(ctx, fmt.Sprintf("%s/breed/%s/images/random", s.baseURL, breed), &payload)
			if err != nil {
				fetchErrs[i] = err
				return
			}
			photos[i] = models.DogPhoto{Breed: breed, PhotoURL: payload.Message}
		}(i, breed)
	}
	wg.Wait()

	for _, err := range fetchErrs {
		if err != nil {
			log.Printf("Failed to fetch random photo: %v", err)
			return nil, errors.ErrCatalogFetch
		}
	}
	return photos, nil
}

func (s *DogService) getJSON(ctx context.Context, url string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}
