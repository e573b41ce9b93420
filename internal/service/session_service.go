package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"

	domainErrors "github.com/mortiscope/mortiscope-web-sub011/internal/domain/errors"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/models"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository"
	"github.com/mortiscope/mortiscope-web-sub011/internal/events"
	"github.com/mortiscope/mortiscope-web-sub011/internal/metrics"
)

const (
	msgSessionNotFound = "Session not found"
	msgRevokeFailed    = "Failed to revoke session"
)

// secondaryEffectTimeout bounds the denylist insert and cache
// invalidation so cache trouble cannot stall the user-visible action.
const secondaryEffectTimeout = 2 * time.Second

// SessionCache is the distributed-cache surface the revocation service
// needs. Invalidation is best-effort; RevokeTokens reports failure as a
// bool so the caller can log and continue.
type SessionCache interface {
	Set(ctx context.Context, session *models.Session) error
	RevokeTokens(ctx context.Context, tokens []string) bool
}

// SessionService removes logical sessions across the relational store,
// the JWT denylist and the distributed cache. The primary effect (the
// row delete) is unconditionally reliable; the denylist and cache are
// defense-in-depth and degrade independently.
type SessionService struct {
	sessionRepo  repository.SessionRepository
	metadataRepo repository.SessionMetadataRepository
	revokedRepo  repository.RevokedTokenRepository
	cache        SessionCache
	publisher    events.Publisher
	metrics      *metrics.Registry
	logger       *zap.Logger
}

// NewSessionService wires the revocation service.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	metadataRepo repository.SessionMetadataRepository,
	revokedRepo repository.RevokedTokenRepository,
	cache SessionCache,
	publisher events.Publisher,
	m *metrics.Registry,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		metadataRepo: metadataRepo,
		revokedRepo:  revokedRepo,
		cache:        cache,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
	}
}

// RevokeSession revokes the session behind a metadata record on behalf
// of its owner. A missing record and an ownership mismatch are
// deliberately indistinguishable to the caller, so the existence of
// other users' sessions never leaks.
func (s *SessionService) RevokeSession(ctx context.Context, metadataID uuid.UUID, requestingUserID uuid.UUID) *models.RevokeSessionResult {
	meta, err := s.metadataRepo.FindByID(ctx, metadataID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) || errors.Is(err, domainErrors.ErrNotFound) {
			s.metrics.SessionRevocations.WithLabelValues("by_id", "not_found").Inc()
			return &models.RevokeSessionResult{Success: false, Error: msgSessionNotFound}
		}
		s.logger.Error("Failed to look up session metadata",
			zap.String("session_metadata_id", metadataID.String()),
			zap.Error(err),
		)
		s.metrics.SessionRevocations.WithLabelValues("by_id", "error").Inc()
		return &models.RevokeSessionResult{Success: false, Error: msgRevokeFailed}
	}

	if meta.UserID != requestingUserID {
		s.metrics.SessionRevocations.WithLabelValues("by_id", "not_found").Inc()
		return &models.RevokeSessionResult{Success: false, Error: msgSessionNotFound}
	}

	deleted, err := s.metadataRepo.Delete(ctx, metadataID)
	if err != nil {
		s.logger.Error("Failed to delete session metadata",
			zap.String("session_metadata_id", metadataID.String()),
			zap.Error(err),
		)
		s.metrics.SessionRevocations.WithLabelValues("by_id", "error").Inc()
		return &models.RevokeSessionResult{Success: false, Error: msgRevokeFailed}
	}
	if !deleted {
		// A concurrent revocation won the delete.
		s.metrics.SessionRevocations.WithLabelValues("by_id", "not_found").Inc()
		return &models.RevokeSessionResult{Success: false, Error: msgSessionNotFound}
	}

	// Orphan metadata carries no token: no denylist entry, no cache call.
	if meta.SessionToken != "" {
		s.revokeToken(ctx, meta.SessionToken)
	}

	s.metrics.SessionRevocations.WithLabelValues("by_id", "success").Inc()
	s.publisher.Publish(ctx, events.EventSessionRevoked, meta.UserID.String(), map[string]string{
		"user_id":             meta.UserID.String(),
		"session_metadata_id": metadataID.String(),
	})
	return &models.RevokeSessionResult{Success: true}
}

// RevokeSessionByToken deletes the canonical Session row keyed by token.
// No ownership check: this path is for trusted internal callers such as
// forced logout.
func (s *SessionService) RevokeSessionByToken(ctx context.Context, token string) *models.RevokeSessionResult {
	if _, err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		s.logger.Error("Failed to revoke session by token:", zap.Error(err))
		s.metrics.SessionRevocations.WithLabelValues("by_token", "error").Inc()
		return &models.RevokeSessionResult{Success: false, Error: msgRevokeFailed}
	}

	s.revokeToken(ctx, token)
	s.metrics.SessionRevocations.WithLabelValues("by_token", "success").Inc()
	return &models.RevokeSessionResult{Success: true}
}

// revokeToken performs the secondary, best-effort effects of a
// revocation: the denylist append, the paired canonical-session delete,
// and the cache invalidation. None of them may fail the caller.
func (s *SessionService) revokeToken(ctx context.Context, token string) {
	effectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), secondaryEffectTimeout)
	defer cancel()

	err := s.revokedRepo.Insert(effectCtx, &models.RevokedToken{Token: token, RevokedAt: time.Now()})
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		// Another concurrent revocation already recorded it.
		s.metrics.DenylistRaces.Inc()
	default:
		s.logger.Error("Failed to blacklist session token:", zap.Error(err))
	}

	if _, err := s.sessionRepo.DeleteByToken(effectCtx, token); err != nil {
		s.logger.Error("Failed to delete canonical session for revoked token", zap.Error(err))
	}

	if ok := s.cache.RevokeTokens(effectCtx, []string{token}); !ok {
		s.logger.Error("Failed to add revoked session to Redis:", zap.String("token_suffix", tokenSuffix(token)))
	}
}

// RecordSession persists a new canonical session plus its user-facing
// metadata at sign-in, parsing browser, OS and device fields out of the
// User-Agent header.
func (s *SessionService) RecordSession(ctx context.Context, session *models.Session, userAgent, ipAddress string) (*models.SessionMetadata, error) {
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	meta := buildSessionMetadata(session, userAgent, ipAddress)
	if err := s.metadataRepo.Create(ctx, meta); err != nil {
		return nil, err
	}

	// Cache write is best-effort; a miss just means a database read later.
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("Failed to cache new session", zap.Error(err))
	}
	return meta, nil
}

// ListSessions returns the caller's session metadata, marking the record
// that matches the presented token as the current session.
func (s *SessionService) ListSessions(ctx context.Context, userID uuid.UUID, currentToken string) ([]*models.SessionMetadata, error) {
	metas, err := s.metadataRepo.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list sessions", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	for _, m := range metas {
		m.IsCurrentSession = currentToken != "" && m.SessionToken == currentToken
	}
	return metas, nil
}

func buildSessionMetadata(session *models.Session, userAgent, ipAddress string) *models.SessionMetadata {
	meta := &models.SessionMetadata{
		ID:           uuid.New(),
		UserID:       session.UserID,
		SessionToken: session.SessionToken,
		LastActiveAt: time.Now(),
		ExpiresAt:    session.ExpiresAt,
	}
	if ipAddress != "" {
		meta.IPAddress = &ipAddress
	}
	if userAgent == "" {
		return meta
	}
	meta.UserAgent = &userAgent

	ua := user_agent.New(userAgent)
	name, version := ua.Browser()
	if name != "" {
		meta.BrowserName = &name
	}
	if version != "" {
		meta.BrowserVersion = &version
	}
	if osInfo := ua.OSInfo(); osInfo.Name != "" {
		osName := osInfo.Name
		meta.OSName = &osName
		if osInfo.Version != "" {
			osVersion := osInfo.Version
			meta.OSVersion = &osVersion
		}
	}
	deviceType := "desktop"
	if ua.Mobile() {
		deviceType = "mobile"
	} else if ua.Bot() {
		deviceType = "bot"
	}
	meta.DeviceType = &deviceType
	return meta
}

// tokenSuffix keeps logs useful without writing whole session tokens
// into them.
func tokenSuffix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return "…" + token[len(token)-8:]
}
