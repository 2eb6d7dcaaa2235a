package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// extractImage reads and validates a multipart image field. A missing
// optional field returns nil bytes without error.
func extractImage(c *fiber.Ctx, field string, required bool) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if !required {
			return nil, nil
		}
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	if !validImageTypes[file.Header.Get("Content-Type")] {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}

// extractFrame accepts a multipart "image" field or a raw image body
func extractFrame(c *fiber.Ctx) ([]byte, error) {
	contentType := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return extractImage(c, "image", true)
	}

	mediaType, _, _ := strings.Cut(contentType, ";")
	if !validImageTypes[strings.TrimSpace(mediaType)] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("unsupported content type"))
	}

	body := c.Body()
	if len(body) == 0 || len(body) > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(nil)
	}

	frame := make([]byte, len(body))
	copy(frame, body)
	return frame, nil
}
