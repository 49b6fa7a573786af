package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microblog_backend/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	Create(db *gorm.DB, post *models.Post) error
	Delete(db *gorm.DB, post *models.Post) error
	FindByID(db *gorm.DB, id uint) (*models.Post, error)
	ListAll(db *gorm.DB, page, perPage int) ([]models.Post, int64, error)
	ListByUser(db *gorm.DB, userID uint, page, perPage int) ([]models.Post, int64, error)
	// Timeline returns posts by followed users plus the user's own,
	// newest first.
	Timeline(db *gorm.DB, userID uint, page, perPage int) ([]models.Post, int64, error)
	// FindByIDsRanked loads posts for a ranked id list, preserving the
	// list's order exactly.
	FindByIDsRanked(db *gorm.DB, ids []uint) ([]models.Post, error)
	// ForEachBatch streams every post in primary-key batches; used for
	// index rebuilds.
	ForEachBatch(db *gorm.DB, batchSize int, fn func(posts []models.Post) error) error
}

type PostRepositoryImpl struct{}

func NewPostRepository() PostRepository {
	return &PostRepositoryImpl{}
}

func (r *PostRepositoryImpl) Create(db *gorm.DB, post *models.Post) error {
	return db.Create(post).Error
}

func (r *PostRepositoryImpl) Delete(db *gorm.DB, post *models.Post) error {
	result := db.Delete(post)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := db.Preload("User").First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostRepositoryImpl) ListAll(db *gorm.DB, page, perPage int) ([]models.Post, int64, error) {
	var total int64
	if err := db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := db.Preload("User").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error
	return posts, total, err
}

func (r *PostRepositoryImpl) ListByUser(db *gorm.DB, userID uint, page, perPage int) ([]models.Post, int64, error) {
	var total int64
	if err := db.Model(&models.Post{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := db.Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error
	return posts, total, err
}

func (r *PostRepositoryImpl) Timeline(db *gorm.DB, userID uint, page, perPage int) ([]models.Post, int64, error) {
	followed := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Follow{}).
		Select("followed_id").
		Where("follower_id = ?", userID)

	cond := "user_id IN (?) OR user_id = ?"

	var total int64
	if err := db.Model(&models.Post{}).Where(cond, followed, userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := db.Preload("User").
		Where(cond, followed, userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&posts).Error
	return posts, total, err
}

func (r *PostRepositoryImpl) FindByIDsRanked(db *gorm.DB, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}

	// The ranked id list comes back from the search backend sorted by
	// relevance; a CASE ordering keyed on id position keeps that order
	// instead of falling back to primary-key order.
	var sb strings.Builder
	vars := make([]interface{}, 0, len(ids)*2)
	sb.WriteString("CASE id")
	for position, id := range ids {
		sb.WriteString(" WHEN ? THEN ?")
		vars = append(vars, id, position)
	}
	sb.WriteString(" END")

	var posts []models.Post
	err := db.Preload("User").
		Where("id IN ?", ids).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: sb.String(), Vars: vars, WithoutParentheses: true},
		}).
		Find(&posts).Error
	return posts, err
}

func (r *PostRepositoryImpl) ForEachBatch(db *gorm.DB, batchSize int, fn func(posts []models.Post) error) error {
	var posts []models.Post
	return db.Order("id").FindInBatches(&posts, batchSize, func(tx *gorm.DB, batch int) error {
		return fn(posts)
	}).Error
}
