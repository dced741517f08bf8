package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetSubPosts(ctx context.Context, parentID string) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
	IncrementLikesCount(ctx context.Context, postID string, delta int) error
	IncrementCommentsCount(ctx context.Context, postID string, delta int) error

	// IsNoticeOff reports whether userID muted notices for the post.
	IsNoticeOff(ctx context.Context, postID string, userID uint) (bool, error)
	SetNoticeOff(ctx context.Context, postID string, userID uint, off bool) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

func objectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a stored post.
		return primitive.NilObjectID, ErrPostNotFound
	}
	return objID, nil
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	if post.TaggedUsers == nil {
		post.TaggedUsers = []uint{}
	}
	if post.NoticeOffUsers == nil {
		post.NoticeOffUsers = []uint{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return errors.Wrap(err, "insert post")
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, errors.Wrap(err, "find post")
	}
	return &post, nil
}

// GetSubPosts retrieves the subposts of a post in creation order
func (r *MongoPostRepository) GetSubPosts(ctx context.Context, parentID string) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"parent_id": parentID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find subposts")
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode subposts")
	}
	return posts, nil
}

// UpdatePost updates the editable fields of a post
func (r *MongoPostRepository) UpdatePost(ctx context.Context, id string, post *models.Post) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}

	tagged := post.TaggedUsers
	if tagged == nil {
		tagged = []uint{}
	}
	post.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"content":      post.Content,
			"image_urls":   post.ImageURLs,
			"tagged_users": tagged,
			"updated_at":   post.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return errors.Wrap(err, "update post")
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return errors.Wrap(err, "delete post")
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *MongoPostRepository) IncrementLikesCount(ctx context.Context, postID string, delta int) error {
	return r.inc(ctx, postID, "likes_count", delta)
}

func (r *MongoPostRepository) IncrementCommentsCount(ctx context.Context, postID string, delta int) error {
	return r.inc(ctx, postID, "comments_count", delta)
}

func (r *MongoPostRepository) inc(ctx context.Context, postID, field string, delta int) error {
	objID, err := objectID(postID)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}})
	return errors.Wrapf(err, "increment %s", field)
}

func (r *MongoPostRepository) IsNoticeOff(ctx context.Context, postID string, userID uint) (bool, error) {
	objID, err := objectID(postID)
	if err != nil {
		return false, err
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID, "notice_off_users": userID})
	if err != nil {
		return false, errors.Wrap(err, "check notice opt-out")
	}
	return n > 0, nil
}

func (r *MongoPostRepository) SetNoticeOff(ctx context.Context, postID string, userID uint, off bool) error {
	objID, err := objectID(postID)
	if err != nil {
		return err
	}
	op := "$pull"
	if off {
		op = "$addToSet"
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{op: bson.M{"notice_off_users": userID}})
	if err != nil {
		return errors.Wrap(err, "set notice opt-out")
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}
