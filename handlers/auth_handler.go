package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"dogfeed/middleware"
	"dogfeed/models"
	"dogfeed/utils/errors"
)

const minPasswordLength = 8

// IdentityStore is what the auth handler needs from the identity service.
type IdentityStore interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, string, error)
	SignOut(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (models.User, error)
}

type AuthHandler struct {
	identity IdentityStore
}

func NewAuthHandler(identity IdentityStore) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// SignUp validates the form locally first: a password/repeat mismatch or a
// short password is rejected before any call to the identity store.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email          string `json:"email"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"passwordRepeat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	fieldErrs := errors.FieldErrors{}
	if !strings.Contains(input.Email, "@") {
		fieldErrs[errors.FieldEmail] = "Invalid email address"
	}
	if len(input.Password) < minPasswordLength {
		fieldErrs[errors.FieldPassword] = "Minimum of 8 characters"
	}
	if len(input.PasswordRepeat) < minPasswordLength {
		fieldErrs[errors.FieldPasswordRepeat] = "Minimum of 8 characters"
	} else if input.PasswordRepeat != input.Password {
		fieldErrs[errors.FieldPasswordRepeat] = "The passwords did not match"
	}
	if len(fieldErrs) > 0 {
		middleware.WriteFieldErrors(w, fieldErrs)
		return
	}

	userID, err := h.identity.SignUp(r.Context(), input.Email, input.Password)
	if err != nil {
		if err == errors.ErrEmailInUse {
			middleware.WriteFieldErrors(w, errors.FieldErrors{
				errors.FieldEmail: "Email is already registered",
			})
			return
		}
		middleware.WriteFieldErrors(w, errors.FieldErrors{
			errors.FieldEmail: "An error occurred during registration",
		})
		return
	}

	// No token on sign-up: the client navigates to login and signs in fresh
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"userID": userID})
}

// SignIn maps identity failures onto the form fields they belong to.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	token, userID, err := h.identity.SignIn(r.Context(), input.Email, input.Password)
	if err != nil {
		switch err {
		case errors.ErrInvalidEmail:
			middleware.WriteFieldErrors(w, errors.FieldErrors{
				errors.FieldEmail: "Email not found",
			})
		case errors.ErrInvalidCredentials:
			middleware.WriteFieldErrors(w, errors.FieldErrors{
				errors.FieldPassword: "Wrong password",
			})
		default:
			middleware.WriteError(w, errors.Wrap(err, "LOGIN_ERROR", "Failed to login user", http.StatusUnauthorized))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token, "userID": userID})
}

// SignOut never fails from the client's point of view.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	_ = h.identity.SignOut(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user's public profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	user, err := h.identity.GetUser(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, errors.ErrNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"userID":       user.PublicID,
		"email":        user.Email,
		"liked_photos": user.LikedPhotos,
		"created_at":   user.CreatedAt,
	})
}
