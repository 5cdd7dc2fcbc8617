package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type authService interface {
	SignUp(ctx context.Context, email, password string) (User, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type SignInResponse struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Handler struct {
	service authService
}

func NewHandler(service authService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := handler.service.SignUp(ctx, creds.Email, creds.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrEmailTaken):
			http.Error(w, "email already registered", http.StatusConflict)
		default:
			log.Errorf("sign up: %s", err)
			http.Error(w, "failed to sign up", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSONResponse(w, SignUpResponse{ID: user.ID, Email: user.Email}, http.StatusCreated)
}

func (handler *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signin")
	defer span.End()

	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := handler.service.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			http.Error(w, "wrong email or password", http.StatusUnauthorized)
			return
		}
		log.Errorf("sign in: %s", err)
		http.Error(w, "failed to sign in", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, SignInResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	})
}

func (handler *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signout")
	defer span.End()

	token := BearerToken(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.service.SignOut(ctx, token); err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrSessionRevoked) {
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("sign out: %s", err)
		http.Error(w, "failed to sign out", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "signed out")
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return Credentials{}, false
	}
	if creds.Email == "" || creds.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return Credentials{}, false
	}
	return creds, true
}
