package media

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// sniffImage detects the content type from the leading bytes, ignoring any client-declared type.
func sniffImage(r io.Reader) (string, string, error) {
	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", "", fmt.Errorf("detect content type: %w", err)
	}
	for mt, ext := range allowedImageTypes {
		if detected.Is(mt) {
			return mt, ext, nil
		}
	}
	return "", "", fmt.Errorf("unsupported content type %s", detected.String())
}

func allowedTypesDescription() string {
	names := make([]string, 0, len(allowedImageTypes))
	for _, ext := range allowedImageTypes {
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(names)
	return humanReadableList(names)
}

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s or %s", items[0], items[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}
