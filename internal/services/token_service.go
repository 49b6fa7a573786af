package services

import (
	"time"

	"gorm.io/gorm"

	"microblog_backend/internal/auth"
	"microblog_backend/internal/models"
	"microblog_backend/internal/repositories"
	"microblog_backend/pkg/apperrors"
)

// reuseWindow is how much validity an existing token must still have for
// issuance to return it unchanged instead of minting a replacement.
const reuseWindow = 60 * time.Second

type TokenService interface {
	// IssueOrReuse returns the user's current bearer token if it still
	// has more than a minute of validity, otherwise mints and persists a
	// new one with the configured TTL.
	IssueOrReuse(db *gorm.DB, user *models.User) (string, error)
	// Revoke expires the user's token immediately. The token value stays
	// in place; only the expiry moves into the past.
	Revoke(db *gorm.DB, user *models.User) error
	// Resolve maps a presented token to its user, rejecting unknown and
	// expired tokens.
	Resolve(db *gorm.DB, token string) (*models.User, error)
}

type TokenServiceImpl struct {
	userRepo repositories.UserRepository
	ttl      time.Duration
}

func NewTokenService(userRepo repositories.UserRepository, ttl time.Duration) TokenService {
	return &TokenServiceImpl{
		userRepo: userRepo,
		ttl:      ttl,
	}
}

func (s *TokenServiceImpl) IssueOrReuse(db *gorm.DB, user *models.User) (string, error) {
	now := time.Now().UTC()

	if user.Token != nil && user.TokenExpiration != nil &&
		user.TokenExpiration.After(now.Add(reuseWindow)) {
		return *user.Token, nil
	}

	token, err := auth.NewToken()
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	expiration := now.Add(s.ttl)

	if err := s.userRepo.UpdateToken(db, user.ID, token, expiration); err != nil {
		return "", apperrors.InternalError(err)
	}

	user.Token = &token
	user.TokenExpiration = &expiration
	return token, nil
}

func (s *TokenServiceImpl) Revoke(db *gorm.DB, user *models.User) error {
	expiration := time.Now().UTC().Add(-time.Second)
	if err := s.userRepo.UpdateTokenExpiration(db, user.ID, expiration); err != nil {
		return apperrors.InternalError(err)
	}
	user.TokenExpiration = &expiration
	return nil
}

func (s *TokenServiceImpl) Resolve(db *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing token")
	}

	user, err := s.userRepo.FindByToken(db, token)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("invalid or expired token")
		}
		return nil, apperrors.InternalError(err)
	}

	if user.TokenExpiration == nil || user.TokenExpiration.Before(time.Now().UTC()) {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}
	return user, nil
}
