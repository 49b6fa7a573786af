package dto

import (
	"fmt"
	"time"

	"microblog_backend/internal/models"
)

type CreatePostRequest struct {
	Body     string `json:"body" validate:"required,min=1,max=140"`
	Language string `json:"language" validate:"omitempty,max=5"`
}

type PostLinks struct {
	Self   string `json:"self"`
	Author string `json:"author"`
}

type PostResponse struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UserID    uint      `json:"user_id"`
	Author    string    `json:"author,omitempty"`
	Links     PostLinks `json:"_links"`
}

func NewPostResponse(post *models.Post) *PostResponse {
	resp := &PostResponse{
		ID:        post.ID,
		Body:      post.Body,
		Language:  post.Language,
		Timestamp: post.CreatedAt,
		UserID:    post.UserID,
		Links: PostLinks{
			Self:   fmt.Sprintf("/api/posts/%d", post.ID),
			Author: fmt.Sprintf("/api/users/%d", post.UserID),
		},
	}
	if post.User != nil {
		resp.Author = post.User.Username
	}
	return resp
}

func NewPostResponses(posts []models.Post) []*PostResponse {
	out := make([]*PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, NewPostResponse(&posts[i]))
	}
	return out
}
