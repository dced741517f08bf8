package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB. A post with a
// ParentID is a subpost of that parent.
type Post struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         uint               `json:"user_id" bson:"user_id"`
	ParentID       string             `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Content        string             `json:"content" bson:"content"`
	ImageURLs      []string           `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	TaggedUsers    []uint             `json:"tagged_users" bson:"tagged_users"`
	NoticeOffUsers []uint             `json:"-" bson:"notice_off_users"`
	LikesCount     int                `json:"likes_count" bson:"likes_count"`
	CommentsCount  int                `json:"comments_count" bson:"comments_count"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content       string           `json:"content" validate:"required,min=1,max=280"`
	ImageURLs     []string         `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	TaggedUserIDs []uint           `json:"tagged_user_ids,omitempty"`
	SubPosts      []SubPostRequest `json:"sub_posts,omitempty" validate:"omitempty,max=10,dive"`
}

// UpdatePostRequest defines the request body for editing a post and its subposts.
// Subposts listed without an ID are created, existing subposts missing from the
// list are deleted.
type UpdatePostRequest struct {
	Content       string           `json:"content" validate:"required,min=1,max=280"`
	ImageURLs     []string         `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	TaggedUserIDs []uint           `json:"tagged_user_ids,omitempty"`
	SubPosts      []SubPostRequest `json:"sub_posts,omitempty" validate:"omitempty,max=10,dive"`
}

type SubPostRequest struct {
	ID            string   `json:"id,omitempty"`
	Content       string   `json:"content" validate:"required,min=1,max=280"`
	ImageURLs     []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	TaggedUserIDs []uint   `json:"tagged_user_ids,omitempty"`
}
