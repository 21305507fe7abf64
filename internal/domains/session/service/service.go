package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"quickassist/infras/jwt"
	"quickassist/infras/otel"
	"quickassist/internal/domains/session/model"
	"quickassist/internal/domains/session/model/dto"
	"quickassist/internal/domains/session/repository"
	"quickassist/shared/constant"
	"quickassist/shared/credentials"
	"quickassist/shared/validator"
)

// Session owns the authenticated identity and its lifecycle. The
// credential pair itself lives in the credentials store; everything
// else reads the role through here and never mutates session state.
type Session interface {
	Init(ctx context.Context)
	Login(ctx context.Context, req dto.LoginRequest) error
	Logout()
	State() model.State
	Identity() (model.Identity, bool)
	Role() string
}

type serviceImpl struct {
	repo      repository.Session
	creds     credentials.Store
	inspector jwt.Inspector
	otel      otel.Otel

	mu       sync.RWMutex
	state    model.State
	identity *model.Identity
}

func New(repo repository.Session, creds credentials.Store, inspector jwt.Inspector, ot otel.Otel) Session {
	return &serviceImpl{
		repo:      repo,
		creds:     creds,
		inspector: inspector,
		otel:      ot,
		state:     model.StateLoading,
	}
}

// Init restores a persisted session. Any identity-fetch failure is an
// implicit logout; the store never stays half-authenticated.
func (s *serviceImpl) Init(ctx context.Context) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Init")
	defer scope.End()

	if s.creds.Access() == constant.Empty {
		s.setUnauthenticated()

		return
	}

	if s.inspector.IsExpired(s.creds.Access()) && s.inspector.IsExpired(s.creds.Refresh()) {
		log.Info().Msg("persisted credentials are expired, starting unauthenticated")
		s.Logout()

		return
	}

	if err := s.fetchIdentity(ctx); err != nil {
		log.Info().Err(err).Msg("persisted session is invalid, logging out")
		s.Logout()
	}
}

func (s *serviceImpl) Login(ctx context.Context, req dto.LoginRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Login")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = validator.Validate(req); err != nil {
		return err
	}

	tokens, err := s.repo.ObtainToken(ctx, req)
	if err != nil {
		s.setUnauthenticated()

		return err
	}

	if err = s.creds.Set(tokens.Access, tokens.Refresh); err != nil {
		log.Error().Err(err).Msg("failed to persist credentials")

		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	if err = s.fetchIdentity(ctx); err != nil {
		s.Logout()

		return err
	}

	return nil
}

// Logout clears all stored credentials and identity. Safe to call at
// any time, in any state.
func (s *serviceImpl) Logout() {
	if err := s.creds.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear persisted credentials")
	}

	s.mu.Lock()
	s.identity = nil
	s.state = model.StateUnauthenticated
	s.mu.Unlock()
}

func (s *serviceImpl) State() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *serviceImpl) Identity() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return model.Identity{}, false
	}

	return *s.identity, true
}

func (s *serviceImpl) Role() string {
	identity, ok := s.Identity()
	if !ok {
		return constant.Empty
	}

	return identity.UserType
}

func (s *serviceImpl) fetchIdentity(ctx context.Context) error {
	res, err := s.repo.Me(ctx)
	if err != nil {
		return err
	}

	identity := res.ToModel()

	s.mu.Lock()
	s.identity = &identity
	s.state = model.StateAuthenticated
	s.mu.Unlock()

	log.Info().Str("username", identity.Username).Str("user_type", identity.UserType).Msg("session authenticated")

	return nil
}

func (s *serviceImpl) setUnauthenticated() {
	s.mu.Lock()
	s.identity = nil
	s.state = model.StateUnauthenticated
	s.mu.Unlock()
}
