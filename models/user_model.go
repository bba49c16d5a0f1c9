package models

import "time"

type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	PublicID     string    `json:"public_id" bson:"public_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"password_hash" bson:"password_hash"`
	LikedPhotos  []string  `json:"liked_photos" bson:"liked_photos"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// AuthEvent is delivered on the auth-status stream. SignedIn false means
// the session ended; UserID is empty in that case.
type AuthEvent struct {
	UserID   string `json:"user_id"`
	SignedIn bool   `json:"signed_in"`
}

// ProfileEvent carries the full liked-photo set as of the change that
// produced it. Consumers overwrite their local copy, they never merge.
type ProfileEvent struct {
	UserID      string   `json:"user_id"`
	LikedPhotos []string `json:"liked_photos"`
}
