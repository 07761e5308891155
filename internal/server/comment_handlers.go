package server

import (
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments returns a card's comments with replies
func (s *Server) ListComments(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	comments, err := s.comments.List(c.UserContext(), user, cardID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(comments)
}

// CreateComment creates a comment or reply on a card
func (s *Server) CreateComment(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	cardID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.CreateCommentInput
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	created, err := s.comments.Create(c.UserContext(), user, cardID, req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment edits the caller's own comment
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	commentID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	updated, err := s.comments.Update(c.UserContext(), user, commentID, req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes the caller's own comment with its replies
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	commentID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := s.comments.Delete(c.UserContext(), user, commentID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

// ToggleReaction adds or removes the caller's emoji on a comment
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	commentID, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := bindJSON(c, &req); err != nil {
		return fail(c, err)
	}
	comment, err := s.comments.ToggleReaction(c.UserContext(), user, commentID, req.Emoji)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(comment)
}
