package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

func TestCommunityPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post, err := env.community.CreatePost(ctx, "owner-1", "", "  Freeze herbs in oil  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Freeze herbs in oil", post.Content)
	assert.Equal(t, domain.PostTypeTip, post.Type)
	assert.Equal(t, "owner-1", post.Username)

	tests := []struct {
		name     string
		content  string
		postType string
	}{
		{name: "empty content", content: "   ", postType: domain.PostTypeRecipe},
		{name: "unknown type", content: "hello", postType: "rant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.community.CreatePost(ctx, "owner-1", "ann", tt.content, tt.postType)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	require.NoError(t, env.community.LikePost(ctx, "owner-1", post.ID))
	assert.ErrorIs(t, env.community.LikePost(ctx, "owner-2", post.ID), domain.ErrNotFound)

	posts, err := env.community.ListPosts(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 1, posts[0].Likes)

	others, err := env.community.ListPosts(ctx, "owner-2")
	require.NoError(t, err)
	assert.NotNil(t, others)
	assert.Empty(t, others)
}

func TestCommunityFeedback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.community.CreateFeedback(ctx, "owner-1", " ", "body")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	fb, err := env.community.CreateFeedback(ctx, "owner-1", "Barcode history", " keep recent scans ")
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusSubmitted, fb.Status)
	assert.Equal(t, "keep recent scans", fb.Description)

	items, err := env.community.ListFeedback(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
