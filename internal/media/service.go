package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"unicode"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Kind selects the object prefix for an upload.
type Kind string

const (
	KindAvatar   Kind = "avatars"
	KindCategory Kind = "categories"
	KindProduct  Kind = "products"
)

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, r io.Reader) (*gcs.UploadResult, error)
	Delete(ctx context.Context, object string) error
}

// File is an upload already spooled to local disk.
type File struct {
	Path     string
	FileName string
	Size     int64
}

// Service stores images on the image host and removes them again.
type Service interface {
	Upload(ctx context.Context, kind Kind, ownerID uuid.UUID, file File) (*dbtypes.Image, error)
	// Delete removes objects best-effort; missing objects are not errors.
	Delete(ctx context.Context, objects ...string) error
}

type service struct {
	store    objectStore
	maxBytes int64
	logg     *logger.Logger
}

// NewService constructs the media service.
func NewService(store objectStore, maxBytes int64, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	return &service{store: store, maxBytes: maxBytes, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, kind Kind, ownerID uuid.UUID, file File) (*dbtypes.Image, error) {
	if file.Path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if file.Size <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if file.Size > s.maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file must be at most %d bytes", s.maxBytes)
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open upload")
	}
	defer f.Close()

	contentType, ext, err := sniffImage(f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file must be a "+allowedTypesDescription()+" image")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rewind upload")
	}

	object := buildObjectName(kind, ownerID, file.FileName, ext)
	res, err := s.store.Upload(ctx, object, contentType, f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}
	return &dbtypes.Image{URL: res.URL, Object: res.Object}, nil
}

func (s *service) Delete(ctx context.Context, objects ...string) error {
	var errs error
	for _, object := range objects {
		if strings.TrimSpace(object) == "" {
			continue
		}
		if err := s.store.Delete(ctx, object); err != nil && !errors.Is(err, gcs.ErrObjectNotFound) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", errs.Error()), "media.cleanup_failed")
	}
	return errs
}

func buildObjectName(kind Kind, ownerID uuid.UUID, fileName, ext string) string {
	base := sanitizeFileName(strings.TrimSuffix(fileName, path.Ext(fileName)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/%s/%s-%s%s", kind, ownerID, uuid.NewString()[:8], base, ext)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range strings.ToLower(clean) {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'):
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
