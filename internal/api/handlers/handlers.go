// Package handlers exposes the expense service over HTTP.
package handlers

import (
	"errors"
	"io"
	"mime/multipart"

	"masarif/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps the service failure taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceError renders a failed service call. Caller mistakes pass
// through quietly; upstream and internal failures are logged.
func serviceError(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	status := statusFor(err)
	if status != fiber.StatusBadRequest {
		logger.Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// readFormFile reads an uploaded multipart file fully into memory.
func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
