package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Image is a hosted picture: the public URL plus the object name needed to delete it.
type Image struct {
	URL    string `json:"url"`
	Object string `json:"object"`
}

// Images persists an ordered image list as a JSON column.
type Images []Image

// Value marshals the list into JSON.
func (i Images) Value() (driver.Value, error) {
	if len(i) == 0 {
		return "[]", nil
	}
	buf, err := json.Marshal([]Image(i))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes a JSON column into the list.
func (i *Images) Scan(src any) error {
	if src == nil {
		*i = Images{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Images: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*i = Images{}
		return nil
	}

	var out []Image
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Images: decode: %w", err)
	}
	*i = Images(out)
	return nil
}

// URLs returns only the public URLs, preserving order.
func (i Images) URLs() []string {
	urls := make([]string, 0, len(i))
	for _, img := range i {
		urls = append(urls, img.URL)
	}
	return urls
}

// Objects returns the storage object names, skipping blanks.
func (i Images) Objects() []string {
	objects := make([]string, 0, len(i))
	for _, img := range i {
		if img.Object != "" {
			objects = append(objects, img.Object)
		}
	}
	return objects
}
