package dto

import (
	"fmt"
	"time"

	"microblog_backend/internal/models"
	"microblog_backend/internal/repositories"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	AboutMe  string `json:"about_me" validate:"max=140"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email" validate:"omitempty,email,max=120"`
	AboutMe  *string `json:"about_me" validate:"omitempty,max=140"`
}

type UserLinks struct {
	Self      string `json:"self"`
	Followers string `json:"followers"`
	Followed  string `json:"followed"`
}

type UserResponse struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	AboutMe       string    `json:"about_me"`
	LastSeen      time.Time `json:"last_seen"`
	PostCount     int64     `json:"post_count"`
	FollowerCount int64     `json:"follower_count"`
	FollowedCount int64     `json:"followed_count"`
	Links         UserLinks `json:"_links"`
}

// NewUserResponse builds the API representation of a user. The email is
// included only when the user requests their own data.
func NewUserResponse(user *models.User, counts *repositories.UserCounts, includeEmail bool) *UserResponse {
	resp := &UserResponse{
		ID:       user.ID,
		Username: user.Username,
		AboutMe:  user.AboutMe,
		LastSeen: user.LastSeen,
		Links: UserLinks{
			Self:      fmt.Sprintf("/api/users/%d", user.ID),
			Followers: fmt.Sprintf("/api/users/%d/followers", user.ID),
			Followed:  fmt.Sprintf("/api/users/%d/followed", user.ID),
		},
	}
	if includeEmail {
		resp.Email = user.Email
	}
	if counts != nil {
		resp.PostCount = counts.Posts
		resp.FollowerCount = counts.Followers
		resp.FollowedCount = counts.Followed
	}
	return resp
}
