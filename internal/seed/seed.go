// Package seed provides helpers to create demo blog posts. These helpers are
// intended for development and testing only.
package seed

import (
	"context"
	"fmt"

	"quill/internal/models"
	"quill/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
)

var categories = []string{
	"Technology", "Tutorial", "Announcement", "Opinion", "Review",
}

// Factory builds blog posts and persists them through the storage interface,
// so seeding works identically against either backend.
type Factory struct {
	store storage.PostStore
}

// NewFactory creates a Factory bound to the provided store.
func NewFactory(store storage.PostStore) *Factory {
	gofakeit.Seed(0)
	return &Factory{store: store}
}

// BuildInput constructs a realistic post input without persisting it.
func (f *Factory) BuildInput(overrides ...func(*models.PostInput)) *models.PostInput {
	input := &models.PostInput{
		Title:    gofakeit.Sentence(5),
		Content:  gofakeit.Paragraph(1, 3, 8, "\n"),
		Category: categories[gofakeit.Number(0, len(categories)-1)],
		Tags:     []string{gofakeit.BuzzWord(), gofakeit.BuzzWord()},
	}
	for _, o := range overrides {
		o(input)
	}
	return input
}

// CreatePost persists a generated post and returns the stored record.
func (f *Factory) CreatePost(ctx context.Context, overrides ...func(*models.PostInput)) (*models.Post, error) {
	input := f.BuildInput(overrides...)
	post, err := f.store.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to seed post: %w", err)
	}
	return post, nil
}

// CreatePosts persists count generated posts.
func (f *Factory) CreatePosts(ctx context.Context, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		post, err := f.CreatePost(ctx)
		if err != nil {
			return posts, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}
