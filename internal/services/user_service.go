package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"microblog_backend/internal/logger"
	"microblog_backend/internal/models"
	"microblog_backend/internal/repositories"
	"microblog_backend/internal/services/dto"
	"microblog_backend/pkg/apperrors"
)

type UserService interface {
	Get(db *gorm.DB, id uint, includeEmail bool) (*dto.UserResponse, error)
	List(db *gorm.DB, page, perPage int) (*dto.Collection, error)
	Update(db *gorm.DB, user *models.User, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Followers(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error)
	Followed(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error)
	Follow(db *gorm.DB, follower *models.User, targetID uint) error
	Unfollow(db *gorm.DB, follower *models.User, targetID uint) error
	// TouchLastSeen is best-effort; failures are logged, never surfaced.
	TouchLastSeen(db *gorm.DB, userID uint)
}

type UserServiceImpl struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &UserServiceImpl{userRepo: userRepo}
}

func (s *UserServiceImpl) Get(db *gorm.DB, id uint, includeEmail bool) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, apperrors.InternalError(err)
	}
	return s.represent(db, user, includeEmail)
}

func (s *UserServiceImpl) List(db *gorm.DB, page, perPage int) (*dto.Collection, error) {
	users, total, err := s.userRepo.List(db, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items, err := s.representAll(db, users)
	if err != nil {
		return nil, err
	}
	return dto.NewCollection(items, "/api/users", page, perPage, total), nil
}

func (s *UserServiceImpl) Update(db *gorm.DB, user *models.User, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if req.Username != nil && *req.Username != user.Username {
		if _, err := s.userRepo.FindByUsername(db, *req.Username); err == nil {
			return nil, apperrors.ValidationError("please use a different username")
		} else if !apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.InternalError(err)
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.userRepo.FindByEmail(db, *req.Email); err == nil {
			return nil, apperrors.ValidationError("please use a different email address")
		} else if !apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.InternalError(err)
		}
		user.Email = *req.Email
	}
	if req.AboutMe != nil {
		user.AboutMe = *req.AboutMe
	}

	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return s.represent(db, user, true)
}

func (s *UserServiceImpl) Followers(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error) {
	if _, err := s.requireUser(db, userID); err != nil {
		return nil, err
	}

	users, total, err := s.userRepo.Followers(db, userID, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items, err := s.representAll(db, users)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("/api/users/%d/followers", userID)
	return dto.NewCollection(items, endpoint, page, perPage, total), nil
}

func (s *UserServiceImpl) Followed(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error) {
	if _, err := s.requireUser(db, userID); err != nil {
		return nil, err
	}

	users, total, err := s.userRepo.Followed(db, userID, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items, err := s.representAll(db, users)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("/api/users/%d/followed", userID)
	return dto.NewCollection(items, endpoint, page, perPage, total), nil
}

func (s *UserServiceImpl) Follow(db *gorm.DB, follower *models.User, targetID uint) error {
	if follower.ID == targetID {
		return apperrors.ValidationError("you cannot follow yourself")
	}
	if _, err := s.requireUser(db, targetID); err != nil {
		return err
	}

	if err := s.userRepo.Follow(db, follower.ID, targetID); err != nil {
		if apperrors.Is(err, repositories.ErrDuplicateFollow) {
			// Already following; treat as satisfied.
			return nil
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *UserServiceImpl) Unfollow(db *gorm.DB, follower *models.User, targetID uint) error {
	if follower.ID == targetID {
		return apperrors.ValidationError("you cannot unfollow yourself")
	}
	if _, err := s.requireUser(db, targetID); err != nil {
		return err
	}

	if err := s.userRepo.Unfollow(db, follower.ID, targetID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *UserServiceImpl) TouchLastSeen(db *gorm.DB, userID uint) {
	if err := s.userRepo.UpdateLastSeen(db, userID, time.Now().UTC()); err != nil {
		logger.Warn("failed to update last seen", "error", err, "user_id", userID)
	}
}

func (s *UserServiceImpl) requireUser(db *gorm.DB, id uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *UserServiceImpl) represent(db *gorm.DB, user *models.User, includeEmail bool) (*dto.UserResponse, error) {
	counts, err := s.userRepo.Counts(db, user.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewUserResponse(user, counts, includeEmail), nil
}

func (s *UserServiceImpl) representAll(db *gorm.DB, users []models.User) ([]*dto.UserResponse, error) {
	items := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		item, err := s.represent(db, &users[i], false)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
