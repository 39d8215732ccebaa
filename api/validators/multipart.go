package validators

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/angelmondragon/storefront-backend/internal/media"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"go.uber.org/multierr"
)

// memoryBuffer is how much of a multipart form is kept in memory before the stdlib spills to disk.
const memoryBuffer = 1 << 20

// Uploads holds files spooled from a multipart request. Cleanup must always be called.
type Uploads struct {
	Files []media.File
	paths []string
	form  *multipart.Form
}

// Cleanup removes every spooled temp file.
func (u *Uploads) Cleanup() {
	if u == nil {
		return
	}
	for _, p := range u.paths {
		_ = os.Remove(p)
	}
	u.paths = nil
	if u.form != nil {
		_ = u.form.RemoveAll()
	}
}

// ParseMultipart parses a multipart form whose total size is bounded by
// maxFiles*maxFileBytes plus a small allowance for text fields.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxFiles int, maxFileBytes int64) error {
	limit := int64(maxFiles)*maxFileBytes + memoryBuffer
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(memoryBuffer); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "upload exceeds %d bytes", tooLarge.Limit)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// SpoolFiles copies the files under field into tempDir, capping each at maxFileBytes.
// required reports an error when no file was sent.
func SpoolFiles(r *http.Request, field, tempDir string, maxFileBytes int64, maxFiles int, required bool) (*Uploads, error) {
	uploads := &Uploads{form: r.MultipartForm}
	if r.MultipartForm == nil {
		if required {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
		}
		return uploads, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 && required {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
	}
	if maxFiles > 0 && len(headers) > maxFiles {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d files allowed in %s", maxFiles, field)
	}

	for _, header := range headers {
		file, err := spool(header, tempDir, maxFileBytes)
		if err != nil {
			uploads.Cleanup()
			return nil, err
		}
		uploads.paths = append(uploads.paths, file.Path)
		uploads.Files = append(uploads.Files, *file)
	}
	return uploads, nil
}

func spool(header *multipart.FileHeader, tempDir string, maxBytes int64) (*media.File, error) {
	if header.Size > maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s exceeds %d bytes", header.Filename, maxBytes)
	}
	src, err := header.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open upload")
	}
	defer src.Close()

	dst, err := os.CreateTemp(tempDir, "upload-*")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create temp file")
	}
	written, copyErr := io.Copy(dst, io.LimitReader(src, maxBytes+1))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil || written > maxBytes {
		_ = os.Remove(dst.Name())
		if written > maxBytes {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s exceeds %d bytes", header.Filename, maxBytes)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("spool upload: %w", multierr.Combine(copyErr, closeErr)), "store upload")
	}
	return &media.File{Path: dst.Name(), FileName: filepath.Base(header.Filename), Size: written}, nil
}

// FormValue returns a trimmed text field from a parsed multipart form.
func FormValue(r *http.Request, key string) string {
	return SanitizeString(r.FormValue(key), 0)
}
