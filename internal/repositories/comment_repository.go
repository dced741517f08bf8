package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	GetReplies(ctx context.Context, parentID uint) ([]models.Comment, error)
	// LatestComment returns the newest comment under postID written by someone
	// other than excludeUserID. A nil parentID looks at depth-0 comments only.
	LatestComment(ctx context.Context, postID string, parentID *uint, excludeUserID uint) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id uint) error
	DeleteCommentsByPostID(ctx context.Context, postID string) ([]uint, error)

	GetTaggedUserIDs(ctx context.Context, commentID uint) ([]uint, error)
	SetTaggedUserIDs(ctx context.Context, commentID uint, userIDs []uint) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return wrap(r.db.WithContext(ctx).Create(comment).Error, "create comment")
}

// GetCommentByID retrieves a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, wrap(err, "get comment")
	}
	return &comment, nil
}

// GetCommentsByPostID retrieves all comments and replies of a post, oldest first
func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error
	return comments, wrap(err, "get comments")
}

func (r *PostgresCommentRepository) GetReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at ASC").Find(&replies).Error
	return replies, wrap(err, "get replies")
}

func (r *PostgresCommentRepository) LatestComment(ctx context.Context, postID string, parentID *uint, excludeUserID uint) (*models.Comment, error) {
	query := r.db.WithContext(ctx).Where("post_id = ? AND user_id <> ?", postID, excludeUserID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var comment models.Comment
	if err := query.Order("created_at DESC").Order("id DESC").First(&comment).Error; err != nil {
		return nil, wrap(err, "latest comment")
	}
	return &comment, nil
}

// UpdateComment updates an existing comment in PostgreSQL
func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	return wrap(r.db.WithContext(ctx).Save(comment).Error, "update comment")
}

// DeleteComment deletes a comment together with its tags and likes
func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.CommentTag{}).Error; err != nil {
			return wrap(err, "delete comment tags")
		}
		if err := tx.Where("comment_id = ?", id).Delete(&models.CommentLike{}).Error; err != nil {
			return wrap(err, "delete comment likes")
		}
		return wrap(tx.Delete(&models.Comment{}, id).Error, "delete comment")
	})
}

// DeleteCommentsByPostID removes every comment of a post and returns their IDs
func (r *PostgresCommentRepository) DeleteCommentsByPostID(ctx context.Context, postID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error; err != nil {
			return wrap(err, "list post comments")
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentTag{}).Error; err != nil {
			return wrap(err, "delete comment tags")
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return wrap(err, "delete comment likes")
		}
		return wrap(tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error, "delete comments")
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresCommentRepository) GetTaggedUserIDs(ctx context.Context, commentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.CommentTag{}).
		Where("comment_id = ?", commentID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	return ids, wrap(err, "get comment tags")
}

// SetTaggedUserIDs replaces the mention set of a comment
func (r *PostgresCommentRepository) SetTaggedUserIDs(ctx context.Context, commentID uint, userIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", commentID).Delete(&models.CommentTag{}).Error; err != nil {
			return wrap(err, "clear comment tags")
		}
		if len(userIDs) == 0 {
			return nil
		}
		tags := make([]models.CommentTag, 0, len(userIDs))
		for _, id := range userIDs {
			tags = append(tags, models.CommentTag{CommentID: commentID, UserID: id})
		}
		return wrap(tx.Create(&tags).Error, "create comment tags")
	})
}
