package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/dailyfit/internal/auth"
	"github.com/2beens/dailyfit/internal/repo"
	"github.com/2beens/dailyfit/internal/telemetry/tracing"
	"github.com/2beens/dailyfit/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=profile_test

type profileRepo interface {
	Create(ctx context.Context, p UserProfile) (UserProfile, error)
	Read(ctx context.Context, id uuid.UUID) (UserProfile, error)
	Update(ctx context.Context, p UserProfile) (UserProfile, error)
}

type Handler struct {
	repo profileRepo
	now  func() time.Time
}

func NewHandler(repo profileRepo) *Handler {
	return &Handler{
		repo: repo,
		now:  time.Now,
	}
}

// HandleGet answers with the stored profile, or an empty one for users that never saved it.
func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	p, err := handler.repo.Read(ctx, userID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Errorf("get profile %s: %s", userID, err)
			http.Error(w, "failed to load profile", http.StatusInternalServerError)
			return
		}
		p = UserProfile{ID: userID}
	}

	pkg.WriteJSONResponseOK(w, p)
}

func (handler *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.save")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var p UserProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		log.Errorf("save profile, unmarshal json params: %s", err)
		http.Error(w, "failed to save profile", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, strings.TrimPrefix(err.Error(), ErrInvalidProfile.Error()+": "), http.StatusBadRequest)
		return
	}

	p.ID = userID
	now := handler.now()
	p.UpdatedAt = &now

	existing, err := handler.repo.Read(ctx, userID)
	switch {
	case err == nil:
		p.CreatedAt = existing.CreatedAt
		p, err = handler.repo.Update(ctx, p)
	case errors.Is(err, repo.ErrNotFound):
		p.CreatedAt = &now
		p, err = handler.repo.Create(ctx, p)
	}
	if errors.Is(err, ErrUnknownUser) {
		log.Warnf("save profile: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Errorf("save profile %s: %s", userID, err)
		http.Error(w, "failed to save profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, p)
}

type Option struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

type Options struct {
	Genders          []Option `json:"genders"`
	FitnessGoals     []Option `json:"fitnessGoals"`
	ExperienceLevels []Option `json:"experienceLevels"`
}

func ProfileOptions() Options {
	var opts Options
	for _, g := range AllGenders() {
		opts.Genders = append(opts.Genders, Option{Value: string(g), DisplayName: g.DisplayName()})
	}
	for _, g := range AllFitnessGoals() {
		opts.FitnessGoals = append(opts.FitnessGoals, Option{
			Value:       string(g),
			DisplayName: g.DisplayName(),
			Description: g.Description(),
		})
	}
	for _, l := range AllExperienceLevels() {
		opts.ExperienceLevels = append(opts.ExperienceLevels, Option{
			Value:       string(l),
			DisplayName: l.DisplayName(),
			Description: l.Description(),
		})
	}
	return opts
}

func (handler *Handler) HandleOptions(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponseOK(w, ProfileOptions())
}
