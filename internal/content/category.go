package content

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const categoryColumns = `
	c.id, c.name, c.slug, c.description, c.image_url, COALESCE(c.parent_id, ''),
	c.order_index, c.is_active, c.created_at,
	COALESCE(p.name, ''), COALESCE(p.slug, '')`

func (c *Catalog) queryCategories(ctx context.Context, where string, args ...any) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+categoryColumns+`
		FROM categories c LEFT JOIN categories p ON p.id = c.parent_id
		WHERE c.is_active = 1 `+where+` ORDER BY c.order_index, c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(
			&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.ImageURL, &cat.ParentID,
			&cat.OrderIndex, &cat.Active, &cat.CreatedAt,
			&cat.ParentName, &cat.ParentSlug,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return cats, nil
}

// Categories returns every active category with its parent's name and slug.
func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	return c.queryCategories(ctx, "")
}

// MainCategories returns the active top-level categories.
func (c *Catalog) MainCategories(ctx context.Context) ([]Category, error) {
	return c.queryCategories(ctx, "AND c.parent_id IS NULL")
}

// Subcategories returns the active children of parentID.
func (c *Catalog) Subcategories(ctx context.Context, parentID string) ([]Category, error) {
	return c.queryCategories(ctx, "AND c.parent_id = ?", parentID)
}

// CategoryBySlug returns the active category with slug.
func (c *Catalog) CategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return c.oneCategory(ctx, "AND c.slug = ?", slug)
}

// CategoryByID returns the active category with id.
func (c *Catalog) CategoryByID(ctx context.Context, id string) (Category, error) {
	return c.oneCategory(ctx, "AND c.id = ?", id)
}

func (c *Catalog) oneCategory(ctx context.Context, where string, key string) (Category, error) {
	cats, err := c.queryCategories(ctx, where, key)
	if err != nil {
		return Category{}, err
	}
	if len(cats) == 0 {
		return Category{}, fmt.Errorf("category %s: %w", key, ErrNotFound)
	}
	return cats[0], nil
}

// CategoryTree returns the top-level categories with Subcategories filled in.
func (c *Catalog) CategoryTree(ctx context.Context) ([]Category, error) {
	all, err := c.Categories(ctx)
	if err != nil {
		return nil, err
	}
	var main []Category
	for _, cat := range all {
		if cat.ParentID == "" {
			main = append(main, cat)
		}
	}
	for i := range main {
		for _, cat := range all {
			if cat.ParentID == main[i].ID {
				main[i].Subcategories = append(main[i].Subcategories, cat)
			}
		}
	}
	return main, nil
}

// AddCategory inserts a category, generating its ID when empty.
func (c *Catalog) AddCategory(ctx context.Context, cat Category) (Category, error) {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}
	var parent sql.NullString
	if cat.ParentID != "" {
		parent = sql.NullString{String: cat.ParentID, Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, image_url, parent_id, order_index, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug, cat.Description, cat.ImageURL, parent, cat.OrderIndex, cat.Active, cat.CreatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("failed to add category: %w", err)
	}
	return cat, nil
}

// Tag files a story under a category.
func (c *Catalog) Tag(ctx context.Context, storyID, categoryID string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO story_categories (story_id, category_id) VALUES (?, ?)`, storyID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to tag story: %w", err)
	}
	return nil
}
