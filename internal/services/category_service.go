package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"

	"autofint/internal/core"
	"autofint/internal/ports"
)

// CategoryService is the category registry: named categories tagged with a
// transaction type and a savings flag. Categories are never deleted.
type CategoryService struct {
	store ports.CategoryStore
}

func NewCategoryService(store ports.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// SeedDefaults inserts the default category list when the registry is
// empty and returns how many were added. A non-empty registry is untouched.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.store.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	added := 0
	for _, c := range core.DefaultCategories() {
		ok, err := s.store.InsertCategory(ctx, c)
		if err != nil {
			return added, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		if ok {
			added++
		}
	}
	slog.InfoContext(ctx, "Seeded default categories", "count", added)
	return added, nil
}

// AddCategory registers a new category. A name that already exists is
// ignored and reported with added=false.
func (s *CategoryService) AddCategory(ctx context.Context, name string, typ core.TxType, isSavings bool) (bool, error) {
	c := core.Category{Name: strings.TrimSpace(name), Type: typ, IsSavings: isSavings}
	if err := c.Validate(); err != nil {
		return false, err
	}

	added, err := s.store.InsertCategory(ctx, c)
	if err != nil {
		return false, fmt.Errorf("add category: %w", err)
	}
	if !added {
		slog.WarnContext(ctx, "Category already exists, ignoring", "category", c.Name)
		return false, nil
	}
	slog.InfoContext(ctx, "Category added", "category", c.Name, "type", c.Type, "is_savings", c.IsSavings)
	return true, nil
}

// CategoriesFor lists category names of typ in insertion order.
func (s *CategoryService) CategoriesFor(ctx context.Context, typ core.TxType) ([]string, error) {
	if !typ.Valid() {
		return nil, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	cats, err := s.store.ListCategories(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}

// Categories returns the full registry, every type, in insertion order.
func (s *CategoryService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// DefaultCategory is the first category of typ, or "" if there is none.
func (s *CategoryService) DefaultCategory(ctx context.Context, typ core.TxType) (string, error) {
	names, err := s.CategoriesFor(ctx, typ)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

// IsSavingsCategory reports the stored savings flag; unknown names are false.
func (s *CategoryService) IsSavingsCategory(ctx context.Context, name string) (bool, error) {
	c, found, err := s.store.GetCategory(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("get category: %w", err)
	}
	return found && c.IsSavings, nil
}

// Suggest returns the registered category closest to name by edit
// distance, ignoring case. ok is false when nothing is reasonably close.
func (s *CategoryService) Suggest(ctx context.Context, name string) (suggestion string, ok bool, err error) {
	cats, err := s.store.ListCategories(ctx, "")
	if err != nil {
		return "", false, fmt.Errorf("list categories: %w", err)
	}
	return closest(name, cats)
}

func closest(name string, cats []core.Category) (string, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false, nil
	}
	best, bestDist := "", -1
	for _, c := range cats {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(c.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c.Name, d
		}
	}
	// More than half the word changed is not a typo.
	if bestDist < 0 || bestDist > len([]rune(needle))/2 {
		return "", false, nil
	}
	return best, true, nil
}
