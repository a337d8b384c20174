package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/apperr"
	"github.com/mavi-pizzeria/api/internal/logger"
	"go.uber.org/zap"
)

const uploadField = "image"

// imageTypes maps sniffed content types to the extension stored on disk.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	errNoFile      = apperr.Validation("No file uploaded")
	errNotAnImage  = apperr.Validation("Not an image! Please upload only images.")
	errFileTooLong = apperr.Validation("File too large")
)

// UploadHandler stores admin image uploads (product and category pictures).
type UploadHandler struct {
	dir      string
	maxBytes int64
}

// NewUploadHandler creates an UploadHandler writing into dir.
func NewUploadHandler(dir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{dir: dir, maxBytes: maxBytes}
}

// RegisterRoutes registers the upload endpoint.
// Expected to be mounted behind RequireAdmin at /admin/upload.
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Upload)
}

// --- Request / Response types ---

type uploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Upload accepts a multipart "image" field. The content type is sniffed from
// the bytes, not taken from the client.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing gets 1 MiB on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.WriteError(w, r, errFileTooLong)
			return
		}
		apperr.WriteError(w, r, errNoFile)
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		apperr.WriteError(w, r, errNoFile)
		return
	}
	head = head[:n]
	ext, ok := imageTypes[http.DetectContentType(head)]
	if !ok {
		apperr.WriteError(w, r, errNotAnImage)
		return
	}

	name := uuid.NewString() + ext
	if err := h.save(name, head, file); err != nil {
		if errors.Is(err, errFileTooLong) {
			apperr.WriteError(w, r, errFileTooLong)
			return
		}
		logger.Error(r.Context(), "store upload failed", zap.String("file", name), zap.Error(err))
		apperr.WriteError(w, r, err)
		return
	}

	logger.Info(r.Context(), "image uploaded", zap.String("file", name))
	apperr.WriteData(w, http.StatusOK, uploadResponse{
		URL:      "/uploads/" + name,
		Filename: name,
	})
}

// --- Helpers ---

// save writes head followed by the rest of src to dir/name. A file over the
// size limit is removed again.
func (h *UploadHandler) save(name string, head []byte, src io.Reader) (err error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(h.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close upload: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err := dst.Write(head); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	limit := h.maxBytes - int64(len(head))
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	if written > limit {
		return errFileTooLong
	}
	return nil
}
