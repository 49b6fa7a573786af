package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"microblog_backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateFollow   = errors.New("follow edge already exists")
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id uint) (*models.User, error)
	FindByUsername(db *gorm.DB, username string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByToken(db *gorm.DB, token string) (*models.User, error)
	Update(db *gorm.DB, user *models.User) error
	UpdateToken(db *gorm.DB, userID uint, token string, expiration time.Time) error
	UpdateTokenExpiration(db *gorm.DB, userID uint, expiration time.Time) error
	UpdatePassword(db *gorm.DB, userID uint, passwordHash string) error
	UpdateLastSeen(db *gorm.DB, userID uint, at time.Time) error
	List(db *gorm.DB, page, perPage int) ([]models.User, int64, error)

	// Follow edge operations
	Follow(db *gorm.DB, followerID, followedID uint) error
	Unfollow(db *gorm.DB, followerID, followedID uint) error
	IsFollowing(db *gorm.DB, followerID, followedID uint) (bool, error)
	Followers(db *gorm.DB, userID uint, page, perPage int) ([]models.User, int64, error)
	Followed(db *gorm.DB, userID uint, page, perPage int) ([]models.User, int64, error)

	Counts(db *gorm.DB, userID uint) (*UserCounts, error)
}

// UserCounts backs the user representation's aggregate fields.
type UserCounts struct {
	Posts     int64
	Followers int64
	Followed  int64
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	// Uniqueness is also enforced by the indexes; checking first gives the
	// caller a precise validation error instead of a driver error.
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateUsername
	}
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	return db.Create(user).Error
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByToken(db *gorm.DB, token string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Update(db *gorm.DB, user *models.User) error {
	result := db.Model(user).Updates(map[string]interface{}{
		"username":   user.Username,
		"email":      user.Email,
		"about_me":   user.AboutMe,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateToken(db *gorm.DB, userID uint, token string, expiration time.Time) error {
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"token":            token,
		"token_expiration": expiration,
	}).Error
}

func (r *UserRepositoryImpl) UpdateTokenExpiration(db *gorm.DB, userID uint, expiration time.Time) error {
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("token_expiration", expiration).Error
}

func (r *UserRepositoryImpl) UpdatePassword(db *gorm.DB, userID uint, passwordHash string) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateLastSeen(db *gorm.DB, userID uint, at time.Time) error {
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_seen", at).Error
}

func (r *UserRepositoryImpl) List(db *gorm.DB, page, perPage int) ([]models.User, int64, error) {
	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := db.Order("id").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error
	return users, total, err
}

// Follow edge operations

func (r *UserRepositoryImpl) Follow(db *gorm.DB, followerID, followedID uint) error {
	exists, err := r.IsFollowing(db, followerID, followedID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateFollow
	}
	return db.Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error
}

func (r *UserRepositoryImpl) Unfollow(db *gorm.DB, followerID, followedID uint) error {
	return db.Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{}).Error
}

func (r *UserRepositoryImpl) IsFollowing(db *gorm.DB, followerID, followedID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepositoryImpl) Followers(db *gorm.DB, userID uint, page, perPage int) ([]models.User, int64, error) {
	base := db.Model(&models.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := base.Order("users.id").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepositoryImpl) Followed(db *gorm.DB, userID uint, page, perPage int) ([]models.User, int64, error) {
	base := db.Model(&models.User{}).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := base.Order("users.id").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error
	return users, total, err
}

func (r *UserRepositoryImpl) Counts(db *gorm.DB, userID uint) (*UserCounts, error) {
	var counts UserCounts
	if err := db.Model(&models.Post{}).Where("user_id = ?", userID).Count(&counts.Posts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Follow{}).Where("followed_id = ?", userID).Count(&counts.Followers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&counts.Followed).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}
