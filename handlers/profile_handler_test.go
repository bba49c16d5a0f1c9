package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dogfeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileStore struct {
	photos    []string
	loadErr   error
	toggleErr error
	toggled   []string
	events    chan models.ProfileEvent
	cancelled atomic.Bool
}

func (f *fakeProfileStore) Load(ctx context.Context, userID string) ([]string, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.photos, nil
}

func (f *fakeProfileStore) Watch(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error) {
	return f.events, func() {
		f.cancelled.Store(true)
		close(f.events)
	}, nil
}

func (f *fakeProfileStore) ToggleLike(ctx context.Context, userID, photoURL string) error {
	f.toggled = append(f.toggled, photoURL)
	return f.toggleErr
}

func TestGetLikes(t *testing.T) {
	store := &fakeProfileStore{photos: []string{"a", "b"}}
	handler := NewProfileHandler(store)

	rec := httptest.NewRecorder()
	handler.GetLikes(rec, authedRequest(http.MethodGet, "/profile/likes", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		LikedPhotos []string `json:"liked_photos"`
		Count       int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body.LikedPhotos)
	assert.Equal(t, 2, body.Count)
}

func TestGetLikes_ReadFailureIsNotFatal(t *testing.T) {
	store := &fakeProfileStore{loadErr: assert.AnError}
	handler := NewProfileHandler(store)

	rec := httptest.NewRecorder()
	handler.GetLikes(rec, authedRequest(http.MethodGet, "/profile/likes", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "sync read failures are logged, never surfaced")
	var body struct {
		LikedPhotos []string `json:"liked_photos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.LikedPhotos)
}

func TestToggleLike_IsFireAndForget(t *testing.T) {
	store := &fakeProfileStore{toggleErr: assert.AnError}
	handler := NewProfileHandler(store)

	payload := []byte(`{"photo_url":"https://images.dog.ceo/pug/1.jpg"}`)
	rec := httptest.NewRecorder()
	handler.ToggleLike(rec, authedRequest(http.MethodPost, "/profile/likes/toggle", payload))

	assert.Equal(t, http.StatusAccepted, rec.Code, "write failures must not interrupt the client")
	assert.Equal(t, []string{"https://images.dog.ceo/pug/1.jpg"}, store.toggled)
}

func TestToggleLike_RequiresPhotoURL(t *testing.T) {
	store := &fakeProfileStore{}
	handler := NewProfileHandler(store)

	rec := httptest.NewRecorder()
	handler.ToggleLike(rec, authedRequest(http.MethodPost, "/profile/likes/toggle", []byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.toggled)
}

func TestWatchLikes_StreamsEventsAndCancelsOnDisconnect(t *testing.T) {
	store := &fakeProfileStore{events: make(chan models.ProfileEvent, 4)}
	handler := NewProfileHandler(store)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(context.WithValue(r.Context(), "userID", "user-1"))
		handler.WatchLikes(w, r)
	}))
	defer server.Close()

	store.events <- models.ProfileEvent{UserID: "user-1", LikedPhotos: []string{"a"}}

	ctx, cancelReq := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var event models.ProfileEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event))
	assert.Equal(t, []string{"a"}, event.LikedPhotos)

	cancelReq()
	assert.Eventually(t, func() bool {
		return store.cancelled.Load()
	}, time.Second, 5*time.Millisecond, "disconnecting must cancel the subscription")
}
