package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostStore is a mock of the storage.PostStore interface.
type MockPostStore struct {
	mock.Mock
}

func (m *MockPostStore) Create(ctx context.Context, input *models.PostInput) (*models.Post, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostStore) List(ctx context.Context, term string) ([]*models.Post, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostStore) Update(ctx context.Context, id string, input *models.PostInput) (*models.Post, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostStore) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPostStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestApp(store *MockPostStore) *fiber.App {
	cfg := &config.Config{Port: "8080", StorageBackend: config.BackendSQLite, SQLitePath: ":memory:"}
	return NewServerWithDeps(cfg, store, nil).NewApp()
}

func decodeErrorBody(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func samplePost() *models.Post {
	now := time.Now().UTC()
	return &models.Post{
		ID:        "1",
		Title:     "A",
		Content:   "B",
		Category:  "C",
		Tags:      []string{"x"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreatePost(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockPostStore)
		expectedStatus int
		checkBody      func(*testing.T, *http.Response)
	}{
		{
			name: "created",
			body: `{"title":"A","content":"B","category":"C","tags":["x"]}`,
			mockSetup: func(store *MockPostStore) {
				store.On("Create", mock.Anything, mock.Anything).Return(samplePost(), nil)
			},
			expectedStatus: http.StatusCreated,
			checkBody: func(t *testing.T, resp *http.Response) {
				var post models.Post
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
				assert.Equal(t, "1", post.ID)
				assert.Equal(t, "A", post.Title)
				assert.Equal(t, []string{"x"}, post.Tags)
			},
		},
		{
			name: "validation failure",
			body: `{"title":""}`,
			mockSetup: func(store *MockPostStore) {
				store.On("Create", mock.Anything, mock.Anything).Return(nil,
					models.NewValidationError("Validation failed: Title is required and must be a non-empty string, Content is required and must be a non-empty string, Category is required and must be a non-empty string, Tags must be an array"))
			},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Bad Request", body.Error)
				assert.Contains(t, body.Message, "Validation failed:")
				assert.Contains(t, body.Message, "Title is required")
				assert.Contains(t, body.Message, "Tags must be an array")
			},
		},
		{
			name:           "non-array tags",
			body:           `{"title":"A","content":"B","category":"C","tags":"x"}`,
			mockSetup:      func(store *MockPostStore) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Bad Request", body.Error)
				assert.Contains(t, body.Message, "Tags must be an array")
			},
		},
		{
			name: "backend failure",
			body: `{"title":"A","content":"B","category":"C","tags":[]}`,
			mockSetup: func(store *MockPostStore) {
				store.On("Create", mock.Anything, mock.Anything).Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Internal Server Error", body.Error)
				assert.Equal(t, "Failed to create blog post", body.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockPostStore)
			tt.mockSetup(store)
			app := newTestApp(store)

			req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.checkBody != nil {
				tt.checkBody(t, resp)
			}
		})
	}
}

func TestGetPost(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		mockSetup      func(*MockPostStore)
		expectedStatus int
		checkBody      func(*testing.T, *http.Response)
	}{
		{
			name: "found",
			id:   "1",
			mockSetup: func(store *MockPostStore) {
				store.On("GetByID", mock.Anything, "1").Return(samplePost(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "malformed id",
			id:   "not-an-id",
			mockSetup: func(store *MockPostStore) {
				store.On("GetByID", mock.Anything, "not-an-id").Return(nil,
					models.NewInvalidIDError("Invalid post ID"))
			},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Bad Request", body.Error)
				assert.Equal(t, "Invalid post ID", body.Message)
			},
		},
		{
			name: "absent",
			id:   "999",
			mockSetup: func(store *MockPostStore) {
				store.On("GetByID", mock.Anything, "999").Return(nil, models.NewNotFoundError())
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Not Found", body.Error)
				assert.Equal(t, "Blog post not found", body.Message)
			},
		},
		{
			name: "backend failure",
			id:   "1",
			mockSetup: func(store *MockPostStore) {
				store.On("GetByID", mock.Anything, "1").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, resp *http.Response) {
				body := decodeErrorBody(t, resp)
				assert.Equal(t, "Failed to fetch blog post", body.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockPostStore)
			tt.mockSetup(store)
			app := newTestApp(store)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/"+tt.id, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.checkBody != nil {
				tt.checkBody(t, resp)
			}
		})
	}
}

func TestGetPosts(t *testing.T) {
	t.Run("forwards the term and returns the list", func(t *testing.T) {
		store := new(MockPostStore)
		store.On("List", mock.Anything, "go").Return([]*models.Post{samplePost()}, nil)
		app := newTestApp(store)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts?term=go", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var posts []models.Post
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts))
		require.Len(t, posts, 1)
		assert.Equal(t, "A", posts[0].Title)
		store.AssertExpectations(t)
	})

	t.Run("empty result stays a JSON array", func(t *testing.T) {
		store := new(MockPostStore)
		store.On("List", mock.Anything, "").Return([]*models.Post{}, nil)
		app := newTestApp(store)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(raw))
	})

	t.Run("backend failure", func(t *testing.T) {
		store := new(MockPostStore)
		store.On("List", mock.Anything, "").Return(nil, assert.AnError)
		app := newTestApp(store)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeErrorBody(t, resp)
		assert.Equal(t, "Failed to fetch blog posts", body.Message)
	})
}

func TestUpdatePost(t *testing.T) {
	validBody := `{"title":"New","content":"Body","category":"C","tags":[]}`

	tests := []struct {
		name           string
		id             string
		body           string
		mockSetup      func(*MockPostStore)
		expectedStatus int
	}{
		{
			name: "updated",
			id:   "1",
			body: validBody,
			mockSetup: func(store *MockPostStore) {
				store.On("Update", mock.Anything, "1", mock.Anything).Return(samplePost(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "malformed id",
			id:   "abc",
			body: validBody,
			mockSetup: func(store *MockPostStore) {
				store.On("Update", mock.Anything, "abc", mock.Anything).Return(nil,
					models.NewInvalidIDError("Invalid post ID"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation failure wins over missing record",
			id:   "999",
			body: `{"title":""}`,
			mockSetup: func(store *MockPostStore) {
				store.On("Update", mock.Anything, "999", mock.Anything).Return(nil,
					models.NewValidationError("Validation failed: Title is required and must be a non-empty string"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "absent",
			id:   "999",
			body: validBody,
			mockSetup: func(store *MockPostStore) {
				store.On("Update", mock.Anything, "999", mock.Anything).Return(nil, models.NewNotFoundError())
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockPostStore)
			tt.mockSetup(store)
			app := newTestApp(store)

			req := httptest.NewRequest(http.MethodPut, "/posts/"+tt.id, bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestDeletePost(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		mockSetup      func(*MockPostStore)
		expectedStatus int
	}{
		{
			name: "deleted",
			id:   "1",
			mockSetup: func(store *MockPostStore) {
				store.On("Delete", mock.Anything, "1").Return(true, nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "already gone",
			id:   "1",
			mockSetup: func(store *MockPostStore) {
				store.On("Delete", mock.Anything, "1").Return(false, nil)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "malformed id",
			id:   "abc",
			mockSetup: func(store *MockPostStore) {
				store.On("Delete", mock.Anything, "abc").Return(false,
					models.NewInvalidIDError("Invalid post ID"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "backend failure",
			id:   "1",
			mockSetup: func(store *MockPostStore) {
				store.On("Delete", mock.Anything, "1").Return(false, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockPostStore)
			tt.mockSetup(store)
			app := newTestApp(store)

			resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/posts/"+tt.id, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusNoContent {
				raw, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Empty(t, raw)
			}
		})
	}
}
