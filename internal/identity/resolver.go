package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"rednote/internal/auth"
	"rednote/internal/models"
	"rednote/internal/store"
)

var (
	// ErrAuthUnavailable means anonymous sign-in failed. Terminal for the
	// attempt; callers must not retry inside the same call.
	ErrAuthUnavailable = errors.New("auth unavailable")
	// ErrProfileNotSet means the identity exists but has no display fields.
	ErrProfileNotSet = errors.New("profile not set")
)

// Session is the result of resolving an identity.
type Session struct {
	Identity   models.Identity `json:"identity"`
	Token      string          `json:"token"`
	ProfileSet bool            `json:"profile_set"`
}

// Service is the resolver surface the handlers consume.
type Service interface {
	EnsureIdentity(ctx context.Context) (Session, error)
	SetProfile(ctx context.Context, userID, username, job string) error
	Profile(ctx context.Context, userID string) (username, job string, err error)
}

// Resolver establishes anonymous identities and resolves their profiles,
// local cache first, remote store second.
type Resolver struct {
	auth  *auth.Provider
	cache *Cache
	store store.Store
}

func NewResolver(provider *auth.Provider, cache *Cache, st store.Store) *Resolver {
	return &Resolver{auth: provider, cache: cache, store: st}
}

// EnsureIdentity obtains an anonymous credential and resolves its profile.
// A missing profile is not an error; the session reports ProfileSet=false.
func (r *Resolver) EnsureIdentity(ctx context.Context) (Session, error) {
	cred, err := r.auth.SignInAnonymously(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	session := Session{
		Identity: models.Identity{ID: cred.UserID},
		Token:    cred.Token,
	}

	username, job, err := r.Profile(ctx, cred.UserID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotSet) {
			log.Warn().Err(err).Str("user_id", cred.UserID).Msg("profile lookup failed")
		}
		return session, nil
	}

	session.Identity.Username = username
	session.Identity.Job = job
	session.ProfileSet = true
	return session, nil
}

// Profile resolves display fields: cache, then remote store. A remote hit
// populates the cache as a side effect.
func (r *Resolver) Profile(ctx context.Context, userID string) (string, string, error) {
	if username, job, ok := r.cache.Profile(userID); ok {
		return username, job, nil
	}

	doc, err := r.store.Get(ctx, models.ProfileCollection(userID), models.ProfileDocID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", "", ErrProfileNotSet
		}
		return "", "", fmt.Errorf("remote profile lookup: %w", err)
	}

	username, uok := doc.Data["username"].(string)
	job, jok := doc.Data["job"].(string)
	if !uok || !jok || username == "" {
		return "", "", ErrProfileNotSet
	}

	if err := r.cache.SetProfile(userID, username, job); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile cache write failed")
	}
	return username, job, nil
}

// SetProfile writes the cache synchronously, then mirrors to the remote
// profile store in the background. The caller never waits on the network;
// a failed remote write is logged and left for the next setup pass.
func (r *Resolver) SetProfile(ctx context.Context, userID, username, job string) error {
	if err := r.cache.SetProfile(userID, username, job); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := r.store.Set(ctx, models.ProfileCollection(userID), models.ProfileDocID, map[string]any{
			"username":  username,
			"job":       job,
			"createdAt": store.ServerTimestamp,
		})
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("remote profile write failed")
		}
	}()

	return nil
}

var _ Service = (*Resolver)(nil)
