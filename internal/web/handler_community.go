package web

import (
	"net/http"

	"github.com/vbonduro/pantrytrack/internal/identity"
)

type createPostRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	Type     string `json:"type" validate:"omitempty,oneof=recipe tip question achievement"`
	Username string `json:"username" validate:"max=50"`
}

type createFeedbackRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Community.ListPosts(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[createPostRequest](w, r)
	if !ok {
		return
	}
	post, err := s.svc.Community.CreatePost(r.Context(), identity.OwnerID(r.Context()), req.Username, req.Content, req.Type)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	if err := s.svc.Community.LikePost(r.Context(), identity.OwnerID(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err, "failed to like post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Community.ListFeedback(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list feedback")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[createFeedbackRequest](w, r)
	if !ok {
		return
	}
	fb, err := s.svc.Community.CreateFeedback(r.Context(), identity.OwnerID(r.Context()), req.Title, req.Description)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to submit feedback")
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}
