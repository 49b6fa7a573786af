package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microblog_backend/internal/models"
)

func TestUserRepository_CreateRejectsDuplicates(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	require.NoError(t, repo.Create(db, &models.User{
		Username: "susan", Email: "susan@example.com", PasswordHash: "x",
	}))

	err := repo.Create(db, &models.User{
		Username: "susan", Email: "other@example.com", PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	err = repo.Create(db, &models.User{
		Username: "other", Email: "susan@example.com", PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_FindByToken(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	user := seedUser(t, db, "susan")
	require.NoError(t, repo.UpdateToken(db, user.ID, "abc123", time.Now().Add(time.Hour)))

	found, err := repo.FindByToken(db, "abc123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByToken(db, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_UpdatePasswordMissingUser(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	err := repo.UpdatePassword(db, 9999, "newhash")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_FollowGraph(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	john := seedUser(t, db, "john")
	susan := seedUser(t, db, "susan")

	following, err := repo.IsFollowing(db, john.ID, susan.ID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, repo.Follow(db, john.ID, susan.ID))

	following, err = repo.IsFollowing(db, john.ID, susan.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The edge is directed: susan does not follow john back.
	reverse, err := repo.IsFollowing(db, susan.ID, john.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	assert.ErrorIs(t, repo.Follow(db, john.ID, susan.ID), ErrDuplicateFollow)

	followers, total, err := repo.Followers(db, susan.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, followers, 1)
	assert.Equal(t, "john", followers[0].Username)

	followed, total, err := repo.Followed(db, john.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, followed, 1)
	assert.Equal(t, "susan", followed[0].Username)

	require.NoError(t, repo.Unfollow(db, john.ID, susan.ID))
	following, err = repo.IsFollowing(db, john.ID, susan.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestUserRepository_Counts(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	susan := seedUser(t, db, "susan")
	john := seedUser(t, db, "john")
	mary := seedUser(t, db, "mary")

	seedPost(t, db, susan.ID, "first")
	seedPost(t, db, susan.ID, "second")
	require.NoError(t, repo.Follow(db, john.ID, susan.ID))
	require.NoError(t, repo.Follow(db, mary.ID, susan.ID))
	require.NoError(t, repo.Follow(db, susan.ID, john.ID))

	counts, err := repo.Counts(db, susan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Posts)
	assert.Equal(t, int64(2), counts.Followers)
	assert.Equal(t, int64(1), counts.Followed)
}

func TestUserRepository_ListPaginates(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	repo := NewUserRepository()

	seedUser(t, db, "alpha")
	seedUser(t, db, "bravo")
	seedUser(t, db, "charlie")

	users, total, err := repo.List(db, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 2)
	assert.Equal(t, "alpha", users[0].Username)

	users, _, err = repo.List(db, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "charlie", users[0].Username)
}
