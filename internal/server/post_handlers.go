package server

import (
	"nekozukan/internal/middleware"
	"nekozukan/internal/models"
	"nekozukan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body accepted by POST /api/posts.
type CreatePostRequest struct {
	ImageURL    string   `json:"image_url"`
	CatName     string   `json:"cat_name"`
	PosterName  string   `json:"poster_name"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// GetPosts handles GET /api/posts?offset=0&limit=12&order=new
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:       page.Limit,
		Offset:      page.Offset,
		Order:       c.Query("order"),
		VisitorHash: middleware.VisitorHash(c),
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		ImageURL:    req.ImageURL,
		CatName:     req.CatName,
		PosterName:  req.PosterName,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (admin only, soft delete)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
