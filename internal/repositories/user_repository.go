package repositories

import (
	"context"
	"strings"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	GetUsersByNames(ctx context.Context, names []string) ([]models.User, error)
	UpdateFCMToken(ctx context.Context, id uint, token string) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return wrap(r.db.WithContext(ctx).Create(user).Error, "create user")
}

// GetUserByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrap(err, "get user")
	}
	return &user, nil
}

// GetUsersByIDs loads the given users keyed by ID. Unknown IDs are absent from the map.
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrap(err, "get users")
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// GetUsersByNames resolves @mention handles. Matching is case-insensitive.
func (r *PostgresUserRepository) GetUsersByNames(ctx context.Context, names []string) ([]models.User, error) {
	var users []models.User
	if len(names) == 0 {
		return users, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	err := r.db.WithContext(ctx).Where("LOWER(name) IN ?", lowered).Find(&users).Error
	return users, wrap(err, "get users by name")
}

func (r *PostgresUserRepository) UpdateFCMToken(ctx context.Context, id uint, token string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token)
	if res.Error != nil {
		return wrap(res.Error, "update fcm token")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
