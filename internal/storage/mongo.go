package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"quill/internal/models"
	"quill/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// postDoc is the document representation of a post. Tags are stored natively
// as an array; timestamps are tracked on every write.
type postDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	Category  string             `bson:"category"`
	Tags      []string           `bson:"tags"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// MongoStore implements PostStore on a MongoDB collection. Identifiers are
// ObjectIDs; a well-formed id is a 24-hex-character string.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the posts collection,
// including the text index over title/content/category.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection("posts")

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "content", Value: "text"},
			{Key: "category", Value: "text"},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create text index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// parseID enforces the ObjectID identifier format.
func (s *MongoStore) parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.NewInvalidIDError("Invalid post ID format")
	}
	return oid, nil
}

func (s *MongoStore) Create(ctx context.Context, input *models.PostInput) (*models.Post, error) {
	if errs := validation.ValidatePost(input, validation.DocumentPolicy); len(errs) > 0 {
		return nil, validation.ValidationError(errs)
	}
	in := validation.Normalize(input)

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := postDoc{
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.NewDuplicateKeyError(err)
		}
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return s.getByObjectID(ctx, oid)
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	return s.getByObjectID(ctx, oid)
}

func (s *MongoStore) getByObjectID(ctx context.Context, oid primitive.ObjectID) (*models.Post, error) {
	var doc postDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return formatDoc(&doc), nil
}

func (s *MongoStore) List(ctx context.Context, term string) ([]*models.Post, error) {
	filter := bson.M{}
	if term != "" {
		// Substring containment, not token search: the term is matched
		// literally and case-insensitively against all three fields.
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		filter = bson.M{"$or": []bson.M{
			{"title": pattern},
			{"content": pattern},
			{"category": pattern},
		}}
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	posts := make([]*models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, formatDoc(&docs[i]))
	}
	return posts, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, input *models.PostInput) (*models.Post, error) {
	oid, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	// Validation runs before the existence check: an invalid body against a
	// nonexistent id reports the validation error, not 404.
	if errs := validation.ValidatePost(input, validation.DocumentPolicy); len(errs) > 0 {
		return nil, validation.ValidationError(errs)
	}
	in := validation.Normalize(input)

	update := bson.M{"$set": bson.M{
		"title":     in.Title,
		"content":   in.Content,
		"category":  in.Category,
		"tags":      in.Tags,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}}

	var doc postDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError()
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.NewDuplicateKeyError(err)
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return formatDoc(&doc), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := s.parseID(id)
	if err != nil {
		return false, err
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// formatDoc normalizes the stored document to the external API shape: the
// ObjectID becomes its hex string and tags are never nil.
func formatDoc(doc *postDoc) *models.Post {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}

	return &models.Post{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Content:   doc.Content,
		Category:  doc.Category,
		Tags:      tags,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}
