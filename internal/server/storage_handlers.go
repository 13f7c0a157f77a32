package server

import (
	"io"

	"nekozukan/internal/middleware"
	"nekozukan/internal/models"
	"nekozukan/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadObject handles POST /storage/v1/object/:bucket with a multipart "file" field.
func (s *Server) UploadObject(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing file"))
	}
	if fh.Size > s.storage.MaxUploadBytes() {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("File too large"))
	}

	f, err := fh.Open()
	if err != nil {
		return respondErr(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, s.storage.MaxUploadBytes()+1))
	if err != nil {
		return respondErr(c, models.NewInternalError(err))
	}

	obj, err := s.storage.Upload(c.UserContext(), service.UploadInput{
		Bucket:      c.Params("bucket"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// ServeObject handles GET /media/:bucket/*
func (s *Server) ServeObject(c *fiber.Ctx) error {
	p, contentType, err := s.storage.Resolve(c.Params("bucket"), c.Params("*"))
	if err != nil {
		return respondErr(c, err)
	}
	c.Set(fiber.HeaderCacheControl, service.CacheControl)
	c.Set(fiber.HeaderContentType, contentType)
	return c.SendFile(p)
}

// GetFlags handles GET /api/flags, evaluated for the calling visitor.
func (s *Server) GetFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(middleware.VisitorHash(c)))
}
