package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// CommunityStore holds community posts and product feedback.
type CommunityStore struct {
	db *sql.DB
}

func NewCommunityStore(db *sql.DB) *CommunityStore {
	return &CommunityStore{db: db}
}

func (s *CommunityStore) CreatePost(ctx context.Context, ownerID, username, content, postType string) (*domain.CommunityPost, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO community_posts (owner_id, username, content, type) VALUES (?, ?, ?, ?)
	`, ownerID, username, content, postType)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	p := &domain.CommunityPost{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, username, content, type, likes, replies, created_at FROM community_posts WHERE id = ?
	`, id).Scan(&p.ID, &p.OwnerID, &p.Username, &p.Content, &p.Type, &p.Likes, &p.Replies, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (s *CommunityStore) ListPosts(ctx context.Context, ownerID string) ([]*domain.CommunityPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, username, content, type, likes, replies, created_at FROM community_posts
		WHERE owner_id = ? ORDER BY id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer closeRows(rows)

	var posts []*domain.CommunityPost
	for rows.Next() {
		p := &domain.CommunityPost{}
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Username, &p.Content, &p.Type, &p.Likes, &p.Replies, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

func (s *CommunityStore) LikePost(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE community_posts SET likes = likes + 1 WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}
	return expectOne(result, "post", id)
}

func (s *CommunityStore) CreateFeedback(ctx context.Context, ownerID, title, description string) (*domain.Feedback, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (owner_id, title, description, status) VALUES (?, ?, ?, ?)
	`, ownerID, title, description, domain.FeedbackStatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	f := &domain.Feedback{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, status, votes, created_at FROM feedback WHERE id = ?
	`, id).Scan(&f.ID, &f.OwnerID, &f.Title, &f.Description, &f.Status, &f.Votes, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

func (s *CommunityStore) ListFeedback(ctx context.Context, ownerID string) ([]*domain.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, status, votes, created_at FROM feedback
		WHERE owner_id = ? ORDER BY votes DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer closeRows(rows)

	var out []*domain.Feedback
	for rows.Next() {
		f := &domain.Feedback{}
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Title, &f.Description, &f.Status, &f.Votes, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}
	return out, nil
}
