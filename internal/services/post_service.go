package services

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"microblog_backend/internal/models"
	"microblog_backend/internal/repositories"
	"microblog_backend/internal/search"
	"microblog_backend/internal/services/dto"
	"microblog_backend/pkg/apperrors"
)

// reindexBatchSize is how many posts a full rebuild loads per query.
const reindexBatchSize = 500

type PostService interface {
	Create(ctx context.Context, db *gorm.DB, author *models.User, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	Get(db *gorm.DB, id uint) (*dto.PostResponse, error)
	// Delete removes a post; only its author may do so.
	Delete(ctx context.Context, db *gorm.DB, actor *models.User, id uint) error
	Explore(db *gorm.DB, page, perPage int) (*dto.Collection, error)
	Timeline(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error)
	// Search runs a ranked full-text query. Without a configured backend
	// it returns an empty collection, not an error.
	Search(ctx context.Context, db *gorm.DB, query string, page, perPage int) (*dto.Collection, error)
	// ReindexAll rebuilds the posts collection from the store; used for
	// backfill, not part of the normal write path.
	ReindexAll(ctx context.Context, db *gorm.DB) error
}

type PostServiceImpl struct {
	postRepo repositories.PostRepository
	syncer   *search.Syncer
}

func NewPostService(postRepo repositories.PostRepository, syncer *search.Syncer) PostService {
	return &PostServiceImpl{
		postRepo: postRepo,
		syncer:   syncer,
	}
}

func (s *PostServiceImpl) Create(ctx context.Context, db *gorm.DB, author *models.User, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	post := &models.Post{
		Body:     req.Body,
		Language: req.Language,
		UserID:   author.ID,
	}

	err := s.syncer.Transaction(ctx, db, func(tx *gorm.DB) error {
		return s.postRepo.Create(tx, post)
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	post.User = author
	return dto.NewPostResponse(post), nil
}

func (s *PostServiceImpl) Get(db *gorm.DB, id uint) (*dto.PostResponse, error) {
	post, err := s.requirePost(db, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponse(post), nil
}

func (s *PostServiceImpl) Delete(ctx context.Context, db *gorm.DB, actor *models.User, id uint) error {
	post, err := s.requirePost(db, id)
	if err != nil {
		return err
	}
	if post.UserID != actor.ID {
		return apperrors.NewForbiddenError("you can only delete your own posts")
	}

	err = s.syncer.Transaction(ctx, db, func(tx *gorm.DB) error {
		return s.postRepo.Delete(tx, post)
	})
	if err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *PostServiceImpl) Explore(db *gorm.DB, page, perPage int) (*dto.Collection, error) {
	posts, total, err := s.postRepo.ListAll(db, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewCollection(dto.NewPostResponses(posts), "/api/posts", page, perPage, total), nil
}

func (s *PostServiceImpl) Timeline(db *gorm.DB, userID uint, page, perPage int) (*dto.Collection, error) {
	posts, total, err := s.postRepo.Timeline(db, userID, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewCollection(dto.NewPostResponses(posts), "/api/timeline", page, perPage, total), nil
}

func (s *PostServiceImpl) Search(ctx context.Context, db *gorm.DB, query string, page, perPage int) (*dto.Collection, error) {
	ids, total, err := s.syncer.Indexer().Query(ctx, models.PostIndex, query, page, perPage)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	// Rehydration must preserve the backend's relevance order exactly.
	posts, err := s.postRepo.FindByIDsRanked(db, ids)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	endpoint := fmt.Sprintf("/api/search?q=%s", url.QueryEscape(query))
	return dto.NewCollection(dto.NewPostResponses(posts), endpoint, page, perPage, total), nil
}

func (s *PostServiceImpl) ReindexAll(ctx context.Context, db *gorm.DB) error {
	index := s.syncer.Indexer()
	return s.postRepo.ForEachBatch(db, reindexBatchSize, func(posts []models.Post) error {
		for i := range posts {
			p := &posts[i]
			if err := index.Index(ctx, p.SearchIndex(), p.SearchID(), p.SearchFields()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostServiceImpl) requirePost(db *gorm.DB, id uint) (*models.Post, error) {
	post, err := s.postRepo.FindByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.NewNotFoundError("post not found")
		}
		return nil, apperrors.InternalError(err)
	}
	return post, nil
}
