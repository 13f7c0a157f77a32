package server

import (
	"nekozukan/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikeRequest is the body of the like endpoints. VisitorID may instead be
// sent in the X-Visitor-ID header.
type LikeRequest struct {
	PostID    uint   `json:"post_id"`
	VisitorID string `json:"visitor_id"`
}

// CounterResponse reports a post's counter after a mutation.
type CounterResponse struct {
	PostID     uint `json:"post_id"`
	LikesCount int  `json:"likes_count"`
}

func (s *Server) parseLikeRequest(c *fiber.Ctx) (LikeRequest, error) {
	var req LikeRequest
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return req, errResponseWritten
	}
	if req.PostID == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid post_id"))
		return req, errResponseWritten
	}
	req.VisitorID = visitorID(c, req.VisitorID)
	return req, nil
}

// InsertLike handles POST /api/likes. A second like from the same visitor is 409.
func (s *Server) InsertLike(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c)
	if err != nil {
		return nil
	}
	like, err := s.likeService.InsertLike(c.UserContext(), req.PostID, req.VisitorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// LikedResponse reports whether the calling visitor has liked a post.
type LikedResponse struct {
	PostID uint `json:"post_id"`
	Liked  bool `json:"liked"`
}

// GetLike handles GET /api/likes?post_id=&visitor_id=
func (s *Server) GetLike(c *fiber.Ctx) error {
	postID, err := parsePostID(c, c.Query("post_id"))
	if err != nil {
		return nil
	}
	liked, err := s.likeService.HasLiked(c.UserContext(), postID, visitorID(c, c.Query("visitor_id")))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(LikedResponse{PostID: postID, Liked: liked})
}

// DeleteLike handles DELETE /api/likes?post_id=&visitor_id=
func (s *Server) DeleteLike(c *fiber.Ctx) error {
	postID, err := parsePostID(c, c.Query("post_id"))
	if err != nil {
		return nil
	}
	if err := s.likeService.DeleteLike(c.UserContext(), postID, visitorID(c, c.Query("visitor_id"))); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// IncrementLikes handles POST /api/rpc/increment_likes
func (s *Server) IncrementLikes(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c)
	if err != nil {
		return nil
	}
	n, err := s.likeService.IncrementLikes(c.UserContext(), req.PostID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(CounterResponse{PostID: req.PostID, LikesCount: n})
}

// DecrementLikes handles POST /api/rpc/decrement_likes
func (s *Server) DecrementLikes(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c)
	if err != nil {
		return nil
	}
	n, err := s.likeService.DecrementLikes(c.UserContext(), req.PostID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(CounterResponse{PostID: req.PostID, LikesCount: n})
}

// LikePost handles POST /api/rpc/like_post. Answers 404 while atomic_likes is off.
func (s *Server) LikePost(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c)
	if err != nil {
		return nil
	}
	n, err := s.likeService.LikePost(c.UserContext(), req.PostID, req.VisitorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(CounterResponse{PostID: req.PostID, LikesCount: n})
}

// UnlikePost handles POST /api/rpc/unlike_post
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c)
	if err != nil {
		return nil
	}
	n, err := s.likeService.UnlikePost(c.UserContext(), req.PostID, req.VisitorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(CounterResponse{PostID: req.PostID, LikesCount: n})
}
