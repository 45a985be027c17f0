// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post is the external API shape of a blog post. The ID is rendered as a
// string regardless of backend: a decimal integer for the SQLite store, a
// 24-hex-character ObjectID for the Mongo store. Storage-internal bookkeeping
// fields never appear here.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostInput is the request body for create and update. Update always rewrites
// all four fields together; there is no partial-patch semantics.
type PostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}
