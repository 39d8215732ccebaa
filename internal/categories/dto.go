package categories

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CategoryDTO is the public shape of a category.
type CategoryDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL  *string    `json:"image_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Node is a category with its nested children.
type Node struct {
	CategoryDTO
	Children []Node `json:"children"`
}

// CreateInput creates a category, optionally under a parent.
type CreateInput struct {
	Name     string     `json:"name" validate:"required,max=80"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// UpdateInput renames or re-parents a category. ClearParent moves it to the root.
type UpdateInput struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=80"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ClearParent bool       `json:"clear_parent,omitempty"`
}

func FromModel(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		ImageURL:  c.ImageURL,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// BuildTree nests a flat list by parent id. Orphans whose parent is missing become roots.
func BuildTree(rows []models.Category) []Node {
	byParent := make(map[uuid.UUID][]models.Category)
	known := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		known[row.ID] = true
	}
	var roots []models.Category
	for _, row := range rows {
		if row.ParentID == nil || !known[*row.ParentID] {
			roots = append(roots, row)
			continue
		}
		byParent[*row.ParentID] = append(byParent[*row.ParentID], row)
	}

	var build func(items []models.Category) []Node
	build = func(items []models.Category) []Node {
		nodes := make([]Node, 0, len(items))
		for i := range items {
			nodes = append(nodes, Node{
				CategoryDTO: FromModel(&items[i]),
				Children:    build(byParent[items[i].ID]),
			})
		}
		return nodes
	}
	return build(roots)
}
