// Package posts owns the lifecycle of ephemeral posts: creation with a
// fixed deadline, author-only mutation and the read paths that hide
// anything past that deadline.
package posts

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// PostLifetime is how long a post stays visible after creation
	PostLifetime = 24 * time.Hour

	DefaultPageSize = 15
	MaxPageSize     = 100

	maxTitleLength = 255
)

// CreateInput holds the fields of a new post
type CreateInput struct {
	Title string
	Body  string
	Tags  []string
}

// UpdateInput holds a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// Filter narrows List. Zero values mean "no constraint".
type Filter struct {
	Tag      string
	AuthorID uint
	Search   string
	Page     int
	PerPage  int
}

// ListResult is one page of live posts
type ListResult struct {
	Posts      []models.Post
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// Manager creates, mutates and reads posts
type Manager struct {
	db       *gorm.DB
	registry *tags.Registry
	now      func() time.Time
	pageSize int
}

// NewManager creates a post manager backed by db
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:       db,
		registry: tags.NewRegistry(db),
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
}

// WithClock returns a copy of the manager that reads the time from now
func (m *Manager) WithClock(now func() time.Time) *Manager {
	clone := *m
	clone.now = now
	return &clone
}

// WithPageSize returns a copy of the manager with a different default page size
func (m *Manager) WithPageSize(size int) *Manager {
	clone := *m
	if size > 0 {
		clone.pageSize = min(size, MaxPageSize)
	}
	return &clone
}

// Now returns the manager's current time in UTC truncated to what the store keeps
func (m *Manager) Now() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Create stores a post owned by authorID. The tag list must name at least
// one tag from the vocabulary; unknown names roll the whole write back.
func (m *Manager) Create(ctx context.Context, authorID uint, in CreateInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	names := tags.NormalizeNames(in.Tags)

	fields := map[string]string{}
	validateTitle(fields, title)
	if strings.TrimSpace(in.Body) == "" {
		fields["body"] = "This field is required"
	}
	if len(names) == 0 {
		fields["tags"] = "At least one tag is required"
	}
	if len(fields) > 0 {
		return nil, &errs.ValidationError{Fields: fields}
	}

	now := m.Now()
	post := models.Post{
		AuthorID:   authorID,
		Title:      title,
		Body:       in.Body,
		SearchText: models.SearchText(title, in.Body),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(PostLifetime),
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return err
		}
		resolved, err := m.registry.WithTx(tx).Resolve(ctx, names)
		if err != nil {
			return err
		}
		return replaceTags(tx, post.ID, resolved)
	})
	if err != nil {
		return nil, err
	}

	return m.load(ctx, post.ID)
}

// Update applies in to the post when callerID is its author. The expiry is
// never moved.
func (m *Manager) Update(ctx context.Context, postID, callerID uint, in UpdateInput) (*models.Post, error) {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := m.findLive(tx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != callerID {
			return &errs.AuthorizationError{Action: "update", Resource: "post"}
		}

		fields := map[string]string{}
		updates := map[string]interface{}{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			validateTitle(fields, title)
			updates["title"] = title
		}
		if in.Body != nil {
			if strings.TrimSpace(*in.Body) == "" {
				fields["body"] = "This field is required"
			}
			updates["body"] = *in.Body
		}
		var names []string
		if in.Tags != nil {
			names = tags.NormalizeNames(*in.Tags)
			if len(names) == 0 {
				fields["tags"] = "At least one tag is required"
			}
		}
		if len(fields) > 0 {
			return &errs.ValidationError{Fields: fields}
		}

		if len(updates) == 0 && in.Tags == nil {
			return nil
		}

		if in.Title != nil || in.Body != nil {
			title, body := post.Title, post.Body
			if in.Title != nil {
				title = updates["title"].(string)
			}
			if in.Body != nil {
				body = *in.Body
			}
			updates["search_text"] = models.SearchText(title, body)
		}
		updates["updated_at"] = m.Now()
		if err := tx.Model(post).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}

		if in.Tags != nil {
			resolved, err := m.registry.WithTx(tx).Resolve(ctx, names)
			if err != nil {
				return err
			}
			if err := replaceTags(tx, post.ID, resolved); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.load(ctx, postID)
}

// Delete permanently removes the post when callerID is its author. Expired
// posts the reaper has not reached yet can still be deleted.
func (m *Manager) Delete(ctx context.Context, postID, callerID uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &errs.NotFoundError{Resource: "post"}
			}
			return err
		}
		if post.AuthorID != callerID {
			return &errs.AuthorizationError{Action: "delete", Resource: "post"}
		}
		return purge(tx, post.ID)
	})
}

// Get returns a live post with its author, tags and comments
func (m *Manager) Get(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := m.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsExpired(m.Now()) {
		return nil, &errs.NotFoundError{Resource: "post", Expired: true}
	}
	return post, nil
}

// FindLive returns the bare post row, failing when it is absent or expired
func (m *Manager) FindLive(ctx context.Context, postID uint) (*models.Post, error) {
	return m.findLive(m.db.WithContext(ctx), postID)
}

// List returns one page of live posts, newest first
func (m *Manager) List(ctx context.Context, f Filter) (*ListResult, error) {
	page := max(f.Page, 1)
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = m.pageSize
	}
	perPage = min(perPage, MaxPageSize)

	now := m.Now()
	base := func() *gorm.DB {
		q := m.db.WithContext(ctx).Model(&models.Post{}).Where("posts.expires_at > ?", now)
		if tag := strings.TrimSpace(f.Tag); tag != "" {
			sub := m.db.WithContext(ctx).Table("post_tags").
				Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.name = ? OR tags.slug = ?", tag, tag)
			q = q.Where("posts.id IN (?)", sub)
		}
		if f.AuthorID != 0 {
			q = q.Where("posts.author_id = ?", f.AuthorID)
		}
		if search := strings.TrimSpace(f.Search); search != "" {
			pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
			q = q.Where("posts.search_text LIKE ? ESCAPE '\\'", pattern)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	var found []models.Post
	err := withRelations(base()).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &ListResult{
		Posts:      found,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// ListByAuthor returns the live posts written by authorID
func (m *Manager) ListByAuthor(ctx context.Context, authorID uint, page, perPage int) (*ListResult, error) {
	return m.List(ctx, Filter{AuthorID: authorID, Page: page, PerPage: perPage})
}

// Purge permanently removes a post with its comments and tag links in its
// own transaction, whatever its expiry or soft-delete state.
func Purge(ctx context.Context, db *gorm.DB, postID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return purge(tx, postID)
	})
}

func purge(tx *gorm.DB, postID uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", postID).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(&models.Post{}, postID).Error
}

func (m *Manager) findLive(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	if err := tx.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Resource: "post"}
		}
		return nil, err
	}
	if post.IsExpired(m.Now()) {
		return nil, &errs.NotFoundError{Resource: "post", Expired: true}
	}
	return &post, nil
}

func (m *Manager) load(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := withRelations(m.db.WithContext(ctx)).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.NotFoundError{Resource: "post"}
		}
		return nil, err
	}
	return &post, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name ASC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC").Order("comments.id ASC")
		}).
		Preload("Comments.User")
}

// replaceTags makes the post's tag set exactly want, touching only the
// join rows that differ.
func replaceTags(tx *gorm.DB, postID uint, want []models.Tag) error {
	var current []uint
	if err := tx.Table("post_tags").Where("post_id = ?", postID).Pluck("tag_id", &current).Error; err != nil {
		return err
	}

	have := make(map[uint]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	keep := make(map[uint]struct{}, len(want))
	for _, tag := range want {
		keep[tag.ID] = struct{}{}
	}

	var removed []uint
	for _, id := range current {
		if _, ok := keep[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ? AND tag_id IN ?", postID, removed).Error; err != nil {
			return err
		}
	}

	for _, tag := range want {
		if _, ok := have[tag.ID]; ok {
			continue
		}
		if err := tx.Exec("INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)", postID, tag.ID).Error; err != nil {
			return err
		}
		have[tag.ID] = struct{}{}
	}
	return nil
}

func validateTitle(fields map[string]string, title string) {
	switch {
	case title == "":
		fields["title"] = "This field is required"
	case utf8.RuneCountInString(title) > maxTitleLength:
		fields["title"] = "Must be at most 255 characters"
	}
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
