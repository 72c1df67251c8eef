package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"inkwell/domain"
)

// MaxUploadSize caps cover-image uploads at 5 MiB.
const MaxUploadSize = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Upload stores an image and returns its public URL.
// POST /api/upload, multipart field "image"
func (h *Handler) Upload(c echo.Context) error {
	if _, err := h.currentUser(c); err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return domain.Invalid("image", "no file uploaded")
	}
	if file.Size > MaxUploadSize {
		return domain.Invalid("image", "file exceeds the 5MB limit")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	// Sniff the real content type instead of trusting the extension.
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return err
	}
	ext, ok := allowedImageTypes[http.DetectContentType(head[:n])]
	if !ok {
		return domain.Invalid("image", "only image files are allowed")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	if base == "" {
		base = "image"
	}
	name := base + "-" + uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	url := c.Scheme() + "://" + c.Request().Host + "/uploads/" + name
	return c.JSON(http.StatusCreated, echo.Map{"url": url, "filename": name})
}
