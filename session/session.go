// Package session tracks whether a tab's user is signed in, driven by the
// identity store's auth-status stream. It owns the lifetime of both the
// auth subscription and the profile subscription: Detach cancels both and
// guarantees no event delivery and no state update afterwards.
package session

import (
	"context"
	"log"
	"sync"

	"dogfeed/models"
)

// Phase is the session's loading phase. Consumers must render a neutral
// loading state while checking and must not redirect until ready.
type Phase int

const (
	PhaseChecking Phase = iota
	PhaseReady
)

// LoginPath is where consumers navigate once the session reports no user.
const LoginPath = "/login"

// AuthWatcher is the slice of the identity store the session consumes.
type AuthWatcher interface {
	WatchAuth(ctx context.Context, token string) (<-chan models.AuthEvent, func(), error)
	SignOut(ctx context.Context, userID string) error
}

// ProfileSync loads and follows the signed-in user's profile document.
type ProfileSync interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Watch(ctx context.Context, userID string) (<-chan models.ProfileEvent, func(), error)
}

// Event is one typed message on the session's stream: exactly one of Auth
// and Profile is set.
type Event struct {
	Auth    *models.AuthEvent    `json:"auth,omitempty"`
	Profile *models.ProfileEvent `json:"profile,omitempty"`
}

// Snapshot is the session state as of one moment. When Phase is
// PhaseReady and Authenticated is false, the consumer redirects to
// LoginPath.
type Snapshot struct {
	Phase         Phase
	Authenticated bool
	UserID        string
}

type Manager struct {
	identity AuthWatcher
	profile  ProfileSync
	events   chan Event

	mu            sync.Mutex
	phase         Phase
	authenticated bool
	userID        string
	loadedFor     string
	detached      bool
	cancelAuth    func()
	cancelProfile func()
}

func NewManager(identity AuthWatcher, profile ProfileSync) *Manager {
	return &Manager{
		identity: identity,
		profile:  profile,
		events:   make(chan Event, 16),
		phase:    PhaseChecking,
	}
}

// Attach starts consuming the auth-status stream for the session the
// token identifies. The phase stays checking until the first event
// arrives; a signed-in first event triggers exactly one profile load.
func (m *Manager) Attach(ctx context.Context, token string) error {
	authEvents, cancel, err := m.identity.WatchAuth(ctx, token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.cancelAuth = cancel
	m.mu.Unlock()

	go func() {
		for event := range authEvents {
			m.applyAuth(ctx, event)
		}
	}()
	return nil
}

// Events is the session's typed stream: AuthChanged and ProfileChanged
// messages in arrival order. Nothing is delivered after Detach.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) applyAuth(ctx context.Context, event models.AuthEvent) {
	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		return
	}

	m.phase = PhaseReady
	m.authenticated = event.SignedIn
	if event.SignedIn {
		m.userID = event.UserID
	} else {
		m.userID = ""
	}

	needLoad := event.SignedIn && m.loadedFor != event.UserID
	if needLoad {
		m.loadedFor = event.UserID
	}
	m.emitLocked(Event{Auth: &event})
	m.mu.Unlock()

	if !needLoad {
		return
	}

	photos, err := m.profile.Load(ctx, event.UserID)
	if err != nil {
		log.Printf("Failed to load profile for user %s: %v", event.UserID, err)
	} else {
		m.mu.Lock()
		if !m.detached {
			m.emitLocked(Event{Profile: &models.ProfileEvent{UserID: event.UserID, LikedPhotos: photos}})
		}
		m.mu.Unlock()
	}

	profileEvents, cancel, err := m.profile.Watch(ctx, event.UserID)
	if err != nil {
		log.Printf("Failed to subscribe to profile changes for user %s: %v", event.UserID, err)
		return
	}

	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancelProfile = cancel
	m.mu.Unlock()

	go func() {
		for profileEvent := range profileEvents {
			m.mu.Lock()
			if m.detached {
				m.mu.Unlock()
				return
			}
			m.emitLocked(Event{Profile: &profileEvent})
			m.mu.Unlock()
		}
	}()
}

// emitLocked requires m.mu held. Sends never block: a consumer that has
// stopped reading loses events rather than wedging the subscriptions.
func (m *Manager) emitLocked(event Event) {
	select {
	case m.events <- event:
	default:
		log.Printf("Session event buffer full for user %s, dropping event", m.userID)
	}
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Phase:         m.phase,
		Authenticated: m.authenticated,
		UserID:        m.userID,
	}
}

// SignOut signs the user out and returns where to navigate. Sign-out
// errors are logged, never surfaced: the user lands on the login page
// either way.
func (m *Manager) SignOut(ctx context.Context) string {
	m.mu.Lock()
	userID := m.userID
	m.mu.Unlock()

	if err := m.identity.SignOut(ctx, userID); err != nil {
		log.Printf("Error signing out user %s: %v", userID, err)
	}
	return LoginPath
}

// Detach cancels the auth and profile subscriptions and closes the event
// stream. No event is delivered after Detach returns, even ones already
// in flight.
func (m *Manager) Detach() {
	m.mu.Lock()
	if m.detached {
		m.mu.Unlock()
		return
	}
	m.detached = true
	cancelAuth := m.cancelAuth
	cancelProfile := m.cancelProfile
	m.cancelAuth = nil
	m.cancelProfile = nil
	close(m.events)
	m.mu.Unlock()

	if cancelAuth != nil {
		cancelAuth()
	}
	if cancelProfile != nil {
		cancelProfile()
	}
}
