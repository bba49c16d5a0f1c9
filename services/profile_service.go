package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"dogfeed/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DocumentStore is the slice of the remote document store that profile
// sync needs. Add and Remove must be atomic set operations on the stored
// array, never read-modify-write, so concurrent toggles converge.
type DocumentStore interface {
	GetLikedPhotos(ctx context.Context, userID string) ([]string, error)
	AddLikedPhoto(ctx context.Context, userID, photoURL string) error
	RemoveLikedPhoto(ctx context.Context, userID, photoURL string) error
}

// ChangeFeed distributes profile change events across sessions and
// devices. Events arrive in publish order; the latest event is the truth.
type ChangeFeed interface {
	Publish(ctx context.Context, event models.ProfileEvent) error
	Subscribe(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error)
}

// ProfileService keeps a local mirror of each user's liked photos and
// writes likes through to the document store. The mirror is a cache: every
// change-feed event overwrites it, whatever local writes are in flight.
type ProfileService struct {
	store DocumentStore
	feed  ChangeFeed

	mu      sync.RWMutex
	mirrors map[string]map[string]struct{}
}

func NewProfileService(store DocumentStore, feed ChangeFeed) *ProfileService {
	return &ProfileService{
		store:   store,
		feed:    feed,
		mirrors: make(map[string]map[string]struct{}),
	}
}

// Load fetches the profile document once and seeds the local mirror. A
// missing document reads as an empty liked set, not an error.
func (s *ProfileService) Load(ctx context.Context, userID string) ([]string, error) {
	photos, err := s.store.GetLikedPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.setMirror(userID, photos)
	return photos, nil
}

// Watch subscribes to profile changes for the user. Every event overwrites
// the local mirror before it is forwarded, in arrival order. The returned
// cancel stops delivery permanently; the channel closes after cancel.
func (s *ProfileService) Watch(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error) {
	events, cancel, err := s.feed.Subscribe(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan models.ProfileEvent, 8)
	go func() {
		defer close(out)
		for event := range events {
			s.setMirror(userID, event.LikedPhotos)
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

// ToggleLike adds the photo to the remote liked set if the mirror says it
// is absent, removes it otherwise. The caller treats this as
// fire-and-forget: on failure the mirror is left for the next change-feed
// event to correct.
func (s *ProfileService) ToggleLike(ctx context.Context, userID, photoURL string) error {
	var err error
	if s.IsLiked(userID, photoURL) {
		err = s.store.RemoveLikedPhoto(ctx, userID, photoURL)
	} else {
		err = s.store.AddLikedPhoto(ctx, userID, photoURL)
	}
	if err != nil {
		log.Printf("Failed to toggle like on %s for user %s: %v", photoURL, userID, err)
		return err
	}

	// Re-read the stored set and publish it so every session, this one
	// included, converges on what the store actually holds.
	photos, err := s.store.GetLikedPhotos(ctx, userID)
	if err != nil {
		log.Printf("Failed to read liked photos for user %s after toggle: %v", userID, err)
		return nil
	}
	s.setMirror(userID, photos)
	if err := s.feed.Publish(ctx, models.ProfileEvent{UserID: userID, LikedPhotos: photos}); err != nil {
		log.Printf("Failed to publish profile change for user %s: %v", userID, err)
	}
	return nil
}

// IsLiked reports whether the local mirror currently contains the photo.
func (s *ProfileService) IsLiked(userID, photoURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mirrors[userID][photoURL]
	return ok
}

// LikedPhotos returns a snapshot of the local mirror for the user.
func (s *ProfileService) LikedPhotos(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	photos := make([]string, 0, len(s.mirrors[userID]))
	for photo := range s.mirrors[userID] {
		photos = append(photos, photo)
	}
	return photos
}

func (s *ProfileService) setMirror(userID string, photos []string) {
	mirror := make(map[string]struct{}, len(photos))
	for _, photo := range photos {
		mirror[photo] = struct{}{}
	}
	s.mu.Lock()
	s.mirrors[userID] = mirror
	s.mu.Unlock()
}

// MongoDocumentStore holds profile documents in the users collection,
// using $addToSet and $pull for idempotent like updates.
type MongoDocumentStore struct {
	collection *mongo.Collection
}

func NewMongoDocumentStore(collection *mongo.Collection) *MongoDocumentStore {
	return &MongoDocumentStore{collection: collection}
}

func (m *MongoDocumentStore) GetLikedPhotos(ctx context.Context, userID string) ([]string, error) {
	var user models.User
	err := m.collection.FindOne(ctx, bson.M{"public_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []string{}, nil
		}
		return nil, err
	}
	if user.LikedPhotos == nil {
		return []string{}, nil
	}
	return user.LikedPhotos, nil
}

func (m *MongoDocumentStore) AddLikedPhoto(ctx context.Context, userID, photoURL string) error {
	update := bson.M{
		"$addToSet": bson.M{
			"liked_photos": photoURL,
		},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"public_id": userID}, update)
	return err
}

func (m *MongoDocumentStore) RemoveLikedPhoto(ctx context.Context, userID, photoURL string) error {
	update := bson.M{
		"$pull": bson.M{
			"liked_photos": photoURL,
		},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"public_id": userID}, update)
	return err
}

// RedisChangeFeed backs the change feed with Redis pub/sub, one channel
// per user, so changes made from other sessions reach this one.
type RedisChangeFeed struct {
	client *redis.Client
}

func NewRedisChangeFeed(client *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{client: client}
}

func profileChannel(userID string) string {
	return "profile:events:" + userID
}

func (f *RedisChangeFeed) Publish(ctx context.Context, event models.ProfileEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, profileChannel(event.UserID), payload).Err()
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error) {
	pubsub := f.client.Subscribe(ctx, profileChannel(userID))
	// Force the subscription to be established before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan models.ProfileEvent, 8)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event models.ProfileEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Failed to unmarshal profile event for user %s: %v", userID, err)
				continue
			}
			out <- event
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				log.Printf("Failed to close profile subscription for user %s: %v", userID, err)
			}
		})
	}

	return out, cancel, nil
}
