// Command seed populates the configured storage backend with demo posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"quill/internal/config"
	"quill/internal/seed"
	"quill/internal/storage"
)

func main() {
	count := flag.Int("count", 10, "number of demo posts to create")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store storage.PostStore
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendMongo:
		store, err = storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	}
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("Storage close error: %v", err)
		}
	}()

	factory := seed.NewFactory(store)
	posts, err := factory.CreatePosts(ctx, *count)
	if err != nil {
		log.Fatalf("Seeding failed after %d posts: %v", len(posts), err)
	}

	log.Printf("Seeded %d posts into the %s backend", len(posts), cfg.StorageBackend)
}
