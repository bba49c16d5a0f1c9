package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"dogfeed/models"
	"dogfeed/utils/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// IdentityService backs email/password authentication against MongoDB and
// fans sign-in/sign-out transitions out to auth-status watchers. Users are
// cached in Redis keyed by public ID.
type IdentityService struct {
	collection  *mongo.Collection
	redisClient *redis.Client
	jwtSecret   string

	mu       sync.Mutex
	watchers map[string][]chan models.AuthEvent
}

func NewIdentityService(collection *mongo.Collection, redisClient *redis.Client, jwtSecret string) *IdentityService {
	// Ensure unique index on email
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := collection.Indexes().CreateOne(context.Background(), indexModel)
	if err != nil {
		log.Printf("Failed to create unique index on users: %v", err)
	}

	return &IdentityService{
		collection:  collection,
		redisClient: redisClient,
		jwtSecret:   jwtSecret,
		watchers:    make(map[string][]chan models.AuthEvent),
	}
}

// SignUp creates a new user with an empty liked-photo set. The profile
// document exists from the moment the account does, so the first dashboard
// load always finds one.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	user := models.User{
		PublicID:     uuid.New().String(),
		Email:        email,
		PasswordHash: string(passwordHash),
		LikedPhotos:  []string{},
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.ErrEmailInUse
		}
		return "", errors.Wrap(err, "DB_ERROR", "failed to create user in database", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)

	return user.PublicID, nil
}

// SignIn authenticates a user, returns a JWT and the user's public ID, and
// notifies auth-status watchers of the transition.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (string, string, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", "", errors.ErrInvalidEmail
		}
		return "", "", errors.Wrap(err, "DB_ERROR", "failed to look up user", http.StatusInternalServerError)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", errors.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID": user.PublicID,
		"email":  user.Email,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)
	s.publish(user.PublicID, models.AuthEvent{UserID: user.PublicID, SignedIn: true})

	return tokenString, user.PublicID, nil
}

// SignOut invalidates the cached user and notifies watchers. Errors here
// are logged and swallowed: the caller navigates to login regardless.
func (s *IdentityService) SignOut(ctx context.Context, userID string) error {
	if err := s.redisClient.Del(ctx, "user:"+userID).Err(); err != nil {
		log.Printf("Failed to drop cached user %s on sign-out: %v", userID, err)
	}
	s.publish(userID, models.AuthEvent{SignedIn: false})
	return nil
}

// CurrentUser resolves a bearer token to a user ID. An empty or invalid
// token resolves to no user, not an error.
func (s *IdentityService) CurrentUser(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", nil
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAPIError("INVALID_TOKEN", "Unexpected signing method", http.StatusUnauthorized)
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil
	}
	userID, _ := claims["userID"].(string)
	return userID, nil
}

// GetUser retrieves a user from Redis or MongoDB
func (s *IdentityService) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	// Check Redis first
	userJSON, err := s.redisClient.Get(ctx, "user:"+userID).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			log.Printf("Failed to unmarshal user %s: %v", userID, err)
		} else {
			return user, nil
		}
	}

	err = s.collection.FindOne(ctx, bson.M{"public_id": bson.M{"$eq": userID}}).Decode(&user)
	if err != nil {
		return models.User{}, err
	}

	s.cacheUser(ctx, user)

	return user, nil
}

// WatchAuth opens an auth-status stream for the session identified by the
// token. The first event always reflects the current status; later events
// follow sign-in/sign-out transitions for that user. The returned cancel
// releases the stream; no event is delivered after it returns.
func (s *IdentityService) WatchAuth(ctx context.Context, tokenString string) (<-chan models.AuthEvent, func(), error) {
	userID, err := s.CurrentUser(ctx, tokenString)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan models.AuthEvent, 8)
	ch <- models.AuthEvent{UserID: userID, SignedIn: userID != ""}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if userID != "" {
				s.mu.Lock()
				subs := s.watchers[userID]
				for i, sub := range subs {
					if sub == ch {
						s.watchers[userID] = append(subs[:i], subs[i+1:]...)
						break
					}
				}
				if len(s.watchers[userID]) == 0 {
					delete(s.watchers, userID)
				}
				s.mu.Unlock()
			}
			close(ch)
		})
	}

	if userID != "" {
		s.mu.Lock()
		s.watchers[userID] = append(s.watchers[userID], ch)
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

// publish delivers under the watcher lock so a concurrent cancel cannot
// close a channel mid-send. Sends never block; a full watcher drops events.
func (s *IdentityService) publish(userID string, event models.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.watchers[userID] {
		select {
		case sub <- event:
		default:
			log.Printf("Auth watcher for user %s is not keeping up, dropping event", userID)
		}
	}
}

func (s *IdentityService) cacheUser(ctx context.Context, user models.User) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		log.Printf("Failed to marshal user %s: %v", user.PublicID, err)
		return
	}
	s.redisClient.Set(ctx, "user:"+user.PublicID, userJSON, 24*time.Hour)
}
