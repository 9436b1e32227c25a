package httpx

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/jisr-market/jisr-backend/internal/platform/apperr"
)

// FormFile reads the multipart file field named field. The caller must close
// the returned file.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("upload exceeds %d bytes: %w", maxBytes, apperr.ErrInvalid)
		}
		return nil, nil, fmt.Errorf("invalid multipart form: %v: %w", err, apperr.ErrInvalid)
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%s file is required: %w", field, apperr.ErrInvalid)
	}
	return f, hdr, nil
}
