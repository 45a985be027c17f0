// Package server contains the HTTP handlers and route setup for the blog API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	store          storage.PostStore
	redis          *redis.Client
	posts          *cache.Posts
	promMiddleware *fiberprometheus.FiberPrometheus
	startTime      time.Time
}

// NewServer creates a server instance, opening the storage backend selected by
// the configuration and connecting the optional Redis cache.
func NewServer(cfg *config.Config) (*Server, error) {
	var store storage.PostStore
	var err error

	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err = storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("storage backend setup failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	return NewServerWithDeps(cfg, store, redisClient), nil
}

// The HTTP metrics collectors register with the global Prometheus registry,
// so they are created once per process no matter how many servers exist.
var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

func promMiddleware() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New("quill")
	})
	return promInstance
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the backend handles.
func NewServerWithDeps(cfg *config.Config, store storage.PostStore, redisClient *redis.Client) *Server {
	return &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		posts:          cache.NewPosts(redisClient),
		promMiddleware: promMiddleware(),
		startTime:      time.Now(),
	}
}

// NewApp builds the Fiber application with the terminal error handler wired in.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Blogging Platform API",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: ErrorHandler,
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate the request ID into the request context for the logger
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// SetupRoutes configures all routes for the application, ending with the
// terminal 404 handler for unmatched paths.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/", s.Root)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	posts := app.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Get("/", s.GetPosts)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Must be registered last
	app.Use(s.NotFound)
}

// Shutdown releases the storage backend and cache handles.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storageStatus := "healthy"
	if s.store == nil {
		storageStatus = "unavailable"
	} else if err := s.store.Ping(ctx); err != nil {
		storageStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		// The cache is optional; its absence does not degrade health.
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "OK"
	if storageStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Seconds(),
		"checks": fiber.Map{
			"storage": storageStatus,
			"redis":   redisStatus,
		},
	})
}

// Root handles GET / with a short API description document.
func (s *Server) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to the Blogging Platform API",
		"version": "1.0.0",
		"endpoints": fiber.Map{
			"GET /health":       "Health check",
			"GET /posts":        "Get all blog posts (with optional ?term=search)",
			"GET /posts/:id":    "Get a specific blog post",
			"POST /posts":       "Create a new blog post",
			"PUT /posts/:id":    "Update a blog post",
			"DELETE /posts/:id": "Delete a blog post",
		},
	})
}

// NotFound is the terminal handler for unmatched routes.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusNotFound, &models.AppError{
		Code:    models.CodeNotFound,
		Message: fmt.Sprintf("Route %s not found", c.OriginalURL()),
	})
}

// ErrorHandler is the terminal Fiber error handler. Handlers catch their own
// expected errors; anything arriving here is classified by shape and mapped to
// the uniform envelope, defaulting to 500 with a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, appErr.Status(), appErr)
	}

	if mongo.IsDuplicateKeyError(err) {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewDuplicateKeyError(err))
	}

	if errors.Is(err, primitive.ErrInvalidHex) {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewInvalidIDError("Invalid ID format"))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return models.RespondWithError(c, fiberErr.Code, fiberErr)
	}

	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
