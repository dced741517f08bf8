package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoticeRepository defines the storage operations behind notice aggregation.
// Lookups of a single row return gorm.ErrRecordNotFound when it is missing.
type NoticeRepository interface {
	// Transaction runs fn against a repository bound to one database transaction.
	Transaction(ctx context.Context, fn func(repo NoticeRepository) error) error

	// FindByKey loads the notice stored under key and locks it for the rest of the transaction.
	FindByKey(ctx context.Context, key models.NoticeKey) (*models.Notice, error)
	GetNoticeByID(ctx context.Context, id uint) (*models.Notice, error)
	ListByReceiver(ctx context.Context, receiverID uint) ([]models.Notice, error)
	CountUnchecked(ctx context.Context, receiverID uint) (int64, error)
	CreateNotice(ctx context.Context, notice *models.Notice) error
	UpdateNotice(ctx context.Context, notice *models.Notice) error
	MarkChecked(ctx context.Context, id uint) error
	MarkAllChecked(ctx context.Context, receiverID uint) error
	DeleteNotice(ctx context.Context, id uint) error

	// Bulk deletes return the receivers whose notices were removed.
	DeleteByPost(ctx context.Context, postID string) ([]uint, error)
	DeleteByComment(ctx context.Context, commentID uint) ([]uint, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]uint, error)

	FindSender(ctx context.Context, noticeID, userID uint) (*models.NoticeSender, error)
	ListSenders(ctx context.Context, noticeID uint) ([]models.NoticeSender, error)
	CountSenders(ctx context.Context, noticeID uint) (int64, error)
	CreateSender(ctx context.Context, sender *models.NoticeSender) error
	UpdateSender(ctx context.Context, sender *models.NoticeSender) error
	DeleteSender(ctx context.Context, id uint) error
}

type postgresNoticeRepository struct {
	db *gorm.DB
}

func NewPostgresNoticeRepository(db *gorm.DB) NoticeRepository {
	return &postgresNoticeRepository{db: db}
}

func (r *postgresNoticeRepository) Transaction(ctx context.Context, fn func(repo NoticeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&postgresNoticeRepository{db: tx})
	})
}

func (r *postgresNoticeRepository) FindByKey(ctx context.Context, key models.NoticeKey) (*models.Notice, error) {
	var notice models.Notice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("receiver_id = ? AND content = ? AND post_id = ? AND parent_comment_id = ? AND friend_id = ?",
			key.ReceiverID, key.Kind, key.PostID, key.ParentCommentID, key.FriendID).
		First(&notice).Error
	if err != nil {
		return nil, wrap(err, "find notice by key")
	}
	return &notice, nil
}

func (r *postgresNoticeRepository) GetNoticeByID(ctx context.Context, id uint) (*models.Notice, error) {
	var notice models.Notice
	if err := r.db.WithContext(ctx).First(&notice, id).Error; err != nil {
		return nil, wrap(err, "get notice")
	}
	return &notice, nil
}

func (r *postgresNoticeRepository) ListByReceiver(ctx context.Context, receiverID uint) ([]models.Notice, error) {
	var notices []models.Notice
	err := r.db.WithContext(ctx).
		Where("receiver_id = ?", receiverID).
		Order("created_at DESC").Order("id DESC").
		Find(&notices).Error
	return notices, wrap(err, "list notices")
}

func (r *postgresNoticeRepository) CountUnchecked(ctx context.Context, receiverID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("receiver_id = ? AND is_checked = false", receiverID).
		Count(&count).Error
	return count, wrap(err, "count unchecked notices")
}

func (r *postgresNoticeRepository) CreateNotice(ctx context.Context, notice *models.Notice) error {
	return wrap(r.db.WithContext(ctx).Create(notice).Error, "create notice")
}

func (r *postgresNoticeRepository) UpdateNotice(ctx context.Context, notice *models.Notice) error {
	return wrap(r.db.WithContext(ctx).Save(notice).Error, "update notice")
}

func (r *postgresNoticeRepository) MarkChecked(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Notice{}).Where("id = ?", id).Update("is_checked", true).Error
	return wrap(err, "mark notice checked")
}

func (r *postgresNoticeRepository) MarkAllChecked(ctx context.Context, receiverID uint) error {
	err := r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("receiver_id = ? AND is_checked = false", receiverID).
		Update("is_checked", true).Error
	return wrap(err, "mark all notices checked")
}

func (r *postgresNoticeRepository) DeleteNotice(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notice_id = ?", id).Delete(&models.NoticeSender{}).Error; err != nil {
			return wrap(err, "delete notice senders")
		}
		return wrap(tx.Delete(&models.Notice{}, id).Error, "delete notice")
	})
}

func (r *postgresNoticeRepository) DeleteByPost(ctx context.Context, postID string) ([]uint, error) {
	return r.deleteWhere(ctx, "post_id = ?", postID)
}

func (r *postgresNoticeRepository) DeleteByComment(ctx context.Context, commentID uint) ([]uint, error) {
	return r.deleteWhere(ctx, "parent_comment_id = ?", commentID)
}

func (r *postgresNoticeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]uint, error) {
	return r.deleteWhere(ctx, "created_at < ?", cutoff)
}

// deleteWhere removes every notice matching the condition together with its senders.
func (r *postgresNoticeRepository) deleteWhere(ctx context.Context, query string, args ...interface{}) ([]uint, error) {
	var receivers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var notices []models.Notice
		if err := tx.Select("id", "receiver_id").Where(query, args...).Find(&notices).Error; err != nil {
			return wrap(err, "select notices")
		}
		if len(notices) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(notices))
		seen := make(map[uint]bool)
		for _, n := range notices {
			ids = append(ids, n.ID)
			if !seen[n.ReceiverID] {
				seen[n.ReceiverID] = true
				receivers = append(receivers, n.ReceiverID)
			}
		}
		if err := tx.Where("notice_id IN ?", ids).Delete(&models.NoticeSender{}).Error; err != nil {
			return wrap(err, "delete notice senders")
		}
		return wrap(tx.Where("id IN ?", ids).Delete(&models.Notice{}).Error, "delete notices")
	})
	if err != nil {
		return nil, err
	}
	return receivers, nil
}

func (r *postgresNoticeRepository) FindSender(ctx context.Context, noticeID, userID uint) (*models.NoticeSender, error) {
	var sender models.NoticeSender
	err := r.db.WithContext(ctx).
		Where("notice_id = ? AND user_id = ?", noticeID, userID).
		First(&sender).Error
	if err != nil {
		return nil, wrap(err, "find notice sender")
	}
	return &sender, nil
}

func (r *postgresNoticeRepository) ListSenders(ctx context.Context, noticeID uint) ([]models.NoticeSender, error) {
	var senders []models.NoticeSender
	err := r.db.WithContext(ctx).
		Where("notice_id = ?", noticeID).
		Order("updated_at DESC").Order("id DESC").
		Find(&senders).Error
	return senders, wrap(err, "list notice senders")
}

func (r *postgresNoticeRepository) CountSenders(ctx context.Context, noticeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.NoticeSender{}).Where("notice_id = ?", noticeID).Count(&count).Error
	return count, wrap(err, "count notice senders")
}

func (r *postgresNoticeRepository) CreateSender(ctx context.Context, sender *models.NoticeSender) error {
	return wrap(r.db.WithContext(ctx).Create(sender).Error, "create notice sender")
}

func (r *postgresNoticeRepository) UpdateSender(ctx context.Context, sender *models.NoticeSender) error {
	return wrap(r.db.WithContext(ctx).Save(sender).Error, "update notice sender")
}

func (r *postgresNoticeRepository) DeleteSender(ctx context.Context, id uint) error {
	return wrap(r.db.WithContext(ctx).Delete(&models.NoticeSender{}, id).Error, "delete notice sender")
}
