package services

import (
	"time"

	"gorm.io/gorm"

	"microblog_backend/internal/auth"
	"microblog_backend/internal/logger"
	"microblog_backend/internal/models"
	"microblog_backend/internal/repositories"
	"microblog_backend/internal/services/dto"
	"microblog_backend/internal/workers"
	"microblog_backend/pkg/apperrors"
)

type AuthService interface {
	Register(db *gorm.DB, req *dto.RegisterRequest) (*models.User, error)
	// Authenticate verifies username+password. The error does not reveal
	// which of the two was wrong.
	Authenticate(db *gorm.DB, username, password string) (*models.User, error)
	// RequestPasswordReset never reports whether the email is known; when
	// it is, a reset mail is dispatched fire-and-forget.
	RequestPasswordReset(db *gorm.DB, email string)
	ResetPassword(db *gorm.DB, token, newPassword string) error
}

type AuthServiceImpl struct {
	userRepo   repositories.UserRepository
	resetCodec *auth.ResetTokenCodec
	mailWorker *workers.MailWorker
}

func NewAuthService(
	userRepo repositories.UserRepository,
	resetCodec *auth.ResetTokenCodec,
	mailWorker *workers.MailWorker,
) AuthService {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		resetCodec: resetCodec,
		mailWorker: mailWorker,
	}
}

func (s *AuthServiceImpl) Register(db *gorm.DB, req *dto.RegisterRequest) (*models.User, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		AboutMe:      req.AboutMe,
		LastSeen:     time.Now().UTC(),
	}

	if err := s.userRepo.Create(db, user); err != nil {
		switch {
		case apperrors.Is(err, repositories.ErrDuplicateUsername):
			return nil, apperrors.ValidationError("please use a different username")
		case apperrors.Is(err, repositories.ErrDuplicateEmail):
			return nil, apperrors.ValidationError("please use a different email address")
		default:
			return nil, apperrors.InternalError(err)
		}
	}
	return user, nil
}

func (s *AuthServiceImpl) Authenticate(db *gorm.DB, username, password string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(db, username)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("invalid username or password")
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.NewUnauthorizedError("invalid username or password")
	}
	return user, nil
}

func (s *AuthServiceImpl) RequestPasswordReset(db *gorm.DB, email string) {
	user, err := s.userRepo.FindByEmail(db, email)
	if err != nil {
		// Unknown addresses get the same outward behavior as known ones.
		if !apperrors.Is(err, repositories.ErrUserNotFound) {
			logger.Error("password reset lookup failed", "error", err)
		}
		return
	}

	token, err := s.resetCodec.Encode(user.ID)
	if err != nil {
		logger.Error("failed to encode reset token", "error", err, "user_id", user.ID)
		return
	}

	s.mailWorker.Enqueue(workers.MailJob{
		To:       user.Email,
		Username: user.Username,
		Token:    token,
	})
}

func (s *AuthServiceImpl) ResetPassword(db *gorm.DB, token, newPassword string) error {
	userID, ok := s.resetCodec.Decode(token)
	if !ok {
		return apperrors.ValidationError("invalid or expired reset token")
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.UpdatePassword(db, userID, hash); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			// The account vanished after the token was issued.
			return apperrors.ValidationError("invalid or expired reset token")
		}
		return apperrors.InternalError(err)
	}
	return nil
}
