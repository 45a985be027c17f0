package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quill/internal/models"
	"quill/internal/validation"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// blogPostRow is the relational representation of a post. Tags are stored as
// a JSON-encoded text column.
type blogPostRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	Category  string `gorm:"not null"`
	Tags      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName maps the row type onto the blog_posts table.
func (blogPostRow) TableName() string { return "blog_posts" }

// SQLiteStore implements PostStore on an embedded SQLite database. Identifiers
// are auto-incrementing integers; a well-formed id is a positive decimal string.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path and
// migrates the blog_posts table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&blogPostRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate blog_posts: %w", err)
	}

	// Listing is always ordered newest-first; keep that cheap.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_blog_posts_created_at ON blog_posts(created_at)").Error; err != nil {
		return nil, fmt.Errorf("failed to create created_at index: %w", err)
	}

	// SQLite serializes writes at the engine level; a single connection
	// avoids lock contention between interleaving requests.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	return &SQLiteStore{db: db}, nil
}

// parseID enforces the integer identifier format.
func (s *SQLiteStore) parseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return 0, models.NewInvalidIDError("Invalid post ID")
	}
	return uint(n), nil
}

func (s *SQLiteStore) Create(ctx context.Context, input *models.PostInput) (*models.Post, error) {
	if errs := validation.ValidatePost(input, validation.RelationalPolicy); len(errs) > 0 {
		return nil, validation.ValidationError(errs)
	}
	in := validation.Normalize(input)

	tags, err := json.Marshal(in.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	row := blogPostRow{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Tags:     string(tags),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	return s.getByRowID(ctx, row.ID)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	rowID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.getByRowID(ctx, rowID)
}

func (s *SQLiteStore) getByRowID(ctx context.Context, rowID uint) (*models.Post, error) {
	var row blogPostRow
	err := s.db.WithContext(ctx).First(&row, rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return formatRow(&row), nil
}

func (s *SQLiteStore) List(ctx context.Context, term string) ([]*models.Post, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if term != "" {
		pattern := "%" + term + "%"
		q = q.Where("title LIKE ? OR content LIKE ? OR category LIKE ?", pattern, pattern, pattern)
	}

	var rows []blogPostRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]*models.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, formatRow(&rows[i]))
	}
	return posts, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, input *models.PostInput) (*models.Post, error) {
	rowID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	// Validation runs before the existence check: an invalid body against a
	// nonexistent id reports the validation error, not 404.
	if errs := validation.ValidatePost(input, validation.RelationalPolicy); len(errs) > 0 {
		return nil, validation.ValidationError(errs)
	}
	in := validation.Normalize(input)

	tags, err := json.Marshal(in.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&blogPostRow{}).Where("id = ?", rowID).Updates(map[string]any{
		"title":      in.Title,
		"content":    in.Content,
		"category":   in.Category,
		"tags":       string(tags),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError()
	}

	return s.getByRowID(ctx, rowID)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	rowID, err := s.parseID(id)
	if err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).Delete(&blogPostRow{}, rowID)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// formatRow normalizes the stored row to the external API shape: the numeric
// id becomes a decimal string and the JSON tags column is decoded (defaulting
// to an empty sequence, never nil).
func formatRow(row *blogPostRow) *models.Post {
	tags := []string{}
	if row.Tags != "" {
		_ = json.Unmarshal([]byte(row.Tags), &tags)
	}
	if tags == nil {
		tags = []string{}
	}

	return &models.Post{
		ID:        strconv.FormatUint(uint64(row.ID), 10),
		Title:     row.Title,
		Content:   row.Content,
		Category:  row.Category,
		Tags:      tags,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}
