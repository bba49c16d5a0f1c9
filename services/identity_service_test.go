package services

import (
	"context"
	"testing"
	"time"

	"dogfeed/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWatchOnlyIdentity builds a service without a Mongo collection: the
// token and watch paths never touch the database. The Redis client points
// nowhere; cache invalidation failures are logged and swallowed.
func newWatchOnlyIdentity(t *testing.T) *IdentityService {
	t.Helper()
	return &IdentityService{
		redisClient: redis.NewClient(&redis.Options{
			Addr:        "localhost:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		jwtSecret:   "test-secret",
		watchers:    make(map[string][]chan models.AuthEvent),
	}
}

func signedToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID": userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}

func TestCurrentUser(t *testing.T) {
	service := newWatchOnlyIdentity(t)

	userID, err := service.CurrentUser(context.Background(), signedToken(t, "test-secret", "user-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestCurrentUser_EmptyOrInvalidTokenIsNoUser(t *testing.T) {
	service := newWatchOnlyIdentity(t)

	userID, err := service.CurrentUser(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, userID)

	userID, err = service.CurrentUser(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.Empty(t, userID)

	// Token signed with a different secret must not resolve
	userID, err = service.CurrentUser(context.Background(), signedToken(t, "other-secret", "user-1"))
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestWatchAuth_FirstEventReflectsCurrentStatus(t *testing.T) {
	service := newWatchOnlyIdentity(t)
	ctx := context.Background()

	events, cancel, err := service.WatchAuth(ctx, "")
	require.NoError(t, err)
	defer cancel()

	select {
	case event := <-events:
		assert.False(t, event.SignedIn)
		assert.Empty(t, event.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate no-user event")
	}

	events2, cancel2, err := service.WatchAuth(ctx, signedToken(t, "test-secret", "user-1"))
	require.NoError(t, err)
	defer cancel2()

	select {
	case event := <-events2:
		assert.True(t, event.SignedIn)
		assert.Equal(t, "user-1", event.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate signed-in event")
	}
}

func TestWatchAuth_SignOutReachesWatchersInOrder(t *testing.T) {
	service := newWatchOnlyIdentity(t)
	ctx := context.Background()

	events, cancel, err := service.WatchAuth(ctx, signedToken(t, "test-secret", "user-1"))
	require.NoError(t, err)
	defer cancel()

	<-events // initial status

	service.publish("user-1", models.AuthEvent{UserID: "user-1", SignedIn: true})
	require.NoError(t, service.SignOut(ctx, "user-1"))

	first := <-events
	assert.True(t, first.SignedIn)
	second := <-events
	assert.False(t, second.SignedIn)
}

func TestWatchAuth_CancelStopsDelivery(t *testing.T) {
	service := newWatchOnlyIdentity(t)
	ctx := context.Background()

	events, cancel, err := service.WatchAuth(ctx, signedToken(t, "test-secret", "user-1"))
	require.NoError(t, err)

	<-events // initial status
	cancel()

	require.NoError(t, service.SignOut(ctx, "user-1"))

	select {
	case _, open := <-events:
		assert.False(t, open, "the channel must be closed after cancel, with nothing delivered")
	case <-time.After(time.Second):
		t.Fatal("expected the event channel to close after cancel")
	}
}

func TestWatchAuth_ContextCancelReleasesWatcher(t *testing.T) {
	service := newWatchOnlyIdentity(t)
	ctx, cancelCtx := context.WithCancel(context.Background())

	events, _, err := service.WatchAuth(ctx, signedToken(t, "test-secret", "user-1"))
	require.NoError(t, err)

	<-events // initial status
	cancelCtx()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected the event channel to close when the context is cancelled")
	}
}
