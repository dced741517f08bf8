package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"gorm.io/gorm"
)

// FriendshipRepository defines the interface for friendship data operations
type FriendshipRepository interface {
	SendFriendRequest(ctx context.Context, req *models.FriendRequest) error
	GetFriendRequestByID(ctx context.Context, id uint) (*models.FriendRequest, error)
	// GetFriendRequestBetween finds the request linking two users in either direction.
	GetFriendRequestBetween(ctx context.Context, userA, userB uint) (*models.FriendRequest, error)
	GetUserPendingFriendRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error)
	GetUserFriendIDs(ctx context.Context, userID uint) ([]uint, error)
	AcceptFriendRequest(ctx context.Context, id uint) error
	DeleteFriendRequest(ctx context.Context, id uint) error
}

// PostgresFriendshipRepository implements FriendshipRepository for PostgreSQL
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// SendFriendRequest creates a new friend request unless the pair is already
// linked in either direction
func (r *PostgresFriendshipRepository) SendFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	if req.SenderID == req.ReceiverID {
		return ErrSelfFriendRequest
	}

	existing, err := r.GetFriendRequestBetween(ctx, req.SenderID, req.ReceiverID)
	switch {
	case err == nil && existing.Status == models.FriendRequestAccepted:
		return ErrAlreadyFriends
	case err == nil:
		return ErrFriendRequestExists
	case !IsNotFound(err):
		return err
	}

	req.Status = models.FriendRequestPending
	return wrap(r.db.WithContext(ctx).Create(req).Error, "create friend request")
}

// GetFriendRequestByID retrieves a friend request by ID
func (r *PostgresFriendshipRepository) GetFriendRequestByID(ctx context.Context, id uint) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, wrap(err, "get friend request")
	}
	return &req, nil
}

func (r *PostgresFriendshipRepository) GetFriendRequestBetween(ctx context.Context, userA, userB uint) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		First(&req).Error
	if err != nil {
		return nil, wrap(err, "get friend request between users")
	}
	return &req, nil
}

// GetUserPendingFriendRequests retrieves all pending friend requests for a user
func (r *PostgresFriendshipRepository) GetUserPendingFriendRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, wrap(err, "get pending friend requests")
}

// GetUserFriendIDs retrieves the IDs of all accepted friends of a user
func (r *PostgresFriendshipRepository) GetUserFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.FriendRequestAccepted).
		Find(&requests).Error
	if err != nil {
		return nil, wrap(err, "get friends")
	}
	ids := make([]uint, 0, len(requests))
	for _, req := range requests {
		if req.SenderID == userID {
			ids = append(ids, req.ReceiverID)
		} else {
			ids = append(ids, req.SenderID)
		}
	}
	return ids, nil
}

func (r *PostgresFriendshipRepository) AcceptFriendRequest(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.FriendRequest{}).Where("id = ?", id).
		Update("status", models.FriendRequestAccepted).Error
	return wrap(err, "accept friend request")
}

// DeleteFriendRequest deletes a friend request (reject, cancel or unfriend)
func (r *PostgresFriendshipRepository) DeleteFriendRequest(ctx context.Context, id uint) error {
	return wrap(r.db.WithContext(ctx).Delete(&models.FriendRequest{}, id).Error, "delete friend request")
}
