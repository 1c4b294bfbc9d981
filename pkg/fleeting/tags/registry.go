package tags

import (
	"context"
	"errors"
	"strings"

	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"gorm.io/gorm"
)

// Registry resolves tag names against the seeded vocabulary. It never
// creates tags on behalf of callers.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a new tag registry
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// WithTx returns a registry bound to tx so lookups join the caller's transaction
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{db: tx}
}

// NormalizeNames trims every name, drops blanks and removes duplicates,
// keeping the first occurrence.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// Resolve maps names onto seeded tags by exact, case-sensitive match.
// The result follows the normalized input order. If any name is unknown a
// NotFoundError listing exactly the unknown names is returned.
func (r *Registry) Resolve(ctx context.Context, names []string) ([]models.Tag, error) {
	normalized := NormalizeNames(names)
	if len(normalized) == 0 {
		return []models.Tag{}, nil
	}

	var found []models.Tag
	if err := r.db.WithContext(ctx).Where("name IN ?", normalized).Find(&found).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]models.Tag, len(found))
	for _, tag := range found {
		byName[tag.Name] = tag
	}

	resolved := make([]models.Tag, 0, len(normalized))
	var missing []string
	for _, name := range normalized {
		tag, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, tag)
	}

	if len(missing) > 0 {
		return nil, &errs.NotFoundError{Resource: "tag", Missing: missing}
	}
	return resolved, nil
}

// List returns every seeded tag
func (r *Registry) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Seed inserts any vocabulary names that are not stored yet. Running it
// again is a no-op.
func (r *Registry) Seed(ctx context.Context, names []string) (int, error) {
	created := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range NormalizeNames(names) {
			var existing models.Tag
			err := tx.Where("name = ?", name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err := tx.Create(&models.Tag{Name: name}).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
