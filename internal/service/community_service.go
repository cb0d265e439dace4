package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

var postTypes = map[string]bool{
	domain.PostTypeRecipe:      true,
	domain.PostTypeTip:         true,
	domain.PostTypeQuestion:    true,
	domain.PostTypeAchievement: true,
}

// CommunityService stores posts and feedback. Both are partitioned by owner
// like the rest of the data.
type CommunityService struct {
	community communityRepository
}

func NewCommunityService(community communityRepository) *CommunityService {
	return &CommunityService{community: community}
}

func (s *CommunityService) CreatePost(ctx context.Context, ownerID, username, content, postType string) (*domain.CommunityPost, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	if postType == "" {
		postType = domain.PostTypeTip
	}
	if !postTypes[postType] {
		return nil, fmt.Errorf("%w: unknown post type %q", domain.ErrInvalidInput, postType)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = ownerID
	}
	return s.community.CreatePost(ctx, ownerID, username, content, postType)
}

func (s *CommunityService) ListPosts(ctx context.Context, ownerID string) ([]*domain.CommunityPost, error) {
	posts, err := s.community.ListPosts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*domain.CommunityPost{}
	}
	return posts, nil
}

func (s *CommunityService) LikePost(ctx context.Context, ownerID string, id int64) error {
	return s.community.LikePost(ctx, ownerID, id)
}

func (s *CommunityService) CreateFeedback(ctx context.Context, ownerID, title, description string) (*domain.Feedback, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	return s.community.CreateFeedback(ctx, ownerID, title, strings.TrimSpace(description))
}

func (s *CommunityService) ListFeedback(ctx context.Context, ownerID string) ([]*domain.Feedback, error) {
	items, err := s.community.ListFeedback(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Feedback{}
	}
	return items, nil
}
