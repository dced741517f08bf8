package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Replies carry the ID of the
// depth-0 comment they answer in ParentID.
type Comment struct {
	gorm.Model
	PostID   string `json:"post_id" gorm:"index"` // MongoDB ObjectID as string
	UserID   uint   `json:"user_id" gorm:"index"`
	ParentID *uint  `json:"parent_id,omitempty" gorm:"index"`
	Content  string `json:"content"`
	File     string `json:"file,omitempty"`
}

// CommentTag records a user currently mentioned in a comment.
type CommentTag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"comment_id" gorm:"uniqueIndex:idx_comment_tag_user"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_comment_tag_user"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	ParentID      *uint  `json:"parent_id,omitempty"`
	Content       string `json:"content" validate:"required_without=File,max=500"`
	File          string `json:"file,omitempty" validate:"omitempty,max=500"`
	TaggedUserIDs []uint `json:"tagged_user_ids,omitempty"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=500"`
	TaggedUserIDs []uint `json:"tagged_user_ids,omitempty"`
}
