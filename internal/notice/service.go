package notice

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"go.uber.org/zap"
)

// PostNoticeSwitch reads and writes a post's notice_off_users set.
type PostNoticeSwitch interface {
	OptOutChecker
	SetNoticeOff(ctx context.Context, postID string, userID uint, off bool) error
}

// UnreadCounter caches per-receiver unread counts.
type UnreadCounter interface {
	Get(ctx context.Context, receiverID uint) (int64, bool, error)
	Set(ctx context.Context, receiverID uint, count int64) error
	Invalidate(ctx context.Context, receiverID uint) error
}

// Service is the receiver facing side of notices.
type Service struct {
	repo      repositories.NoticeRepository
	presenter *Presenter
	posts     PostNoticeSwitch
	unread    UnreadCounter
	now       func() time.Time
}

func NewService(repo repositories.NoticeRepository, presenter *Presenter, posts PostNoticeSwitch) *Service {
	return &Service{repo: repo, presenter: presenter, posts: posts, now: time.Now}
}

// WithUnreadCache enables caching of UnreadCount.
func (s *Service) WithUnreadCache(c UnreadCounter) *Service {
	s.unread = c
	return s
}

// List renders the receiver's notices, most recently triggered first. Stale
// notices are deleted on the way.
func (s *Service) List(ctx context.Context, receiverID uint) ([]NoticeView, error) {
	notices, err := s.repo.ListByReceiver(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]NoticeView, 0, len(notices))
	expired := 0
	for i := range notices {
		view, ok, err := s.presenter.Present(ctx, &notices[i], now)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := s.repo.DeleteNotice(ctx, notices[i].ID); err != nil {
				return nil, err
			}
			expired++
			continue
		}
		views = append(views, *view)
	}
	if expired > 0 {
		log.L.Debug("expired stale notices", zap.Uint("receiver", receiverID), zap.Int("count", expired))
		s.invalidate(ctx, receiverID)
	}
	return views, nil
}

// Detail renders one notice and marks it checked.
func (s *Service) Detail(ctx context.Context, receiverID, id uint) (*NoticeView, error) {
	n, err := s.owned(ctx, receiverID, id)
	if err != nil {
		return nil, err
	}

	view, ok, err := s.presenter.Present(ctx, n, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.repo.DeleteNotice(ctx, n.ID); err != nil {
			return nil, err
		}
		s.invalidate(ctx, receiverID)
		return nil, ErrNoticeNotFound
	}

	if !n.IsChecked {
		if err := s.repo.MarkChecked(ctx, n.ID); err != nil {
			return nil, err
		}
		s.invalidate(ctx, receiverID)
	}
	view.IsChecked = true
	return view, nil
}

func (s *Service) Delete(ctx context.Context, receiverID, id uint) error {
	n, err := s.owned(ctx, receiverID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteNotice(ctx, n.ID); err != nil {
		return err
	}
	s.invalidate(ctx, receiverID)
	return nil
}

// CheckAll marks every unchecked notice of the receiver checked.
func (s *Service) CheckAll(ctx context.Context, receiverID uint) error {
	if err := s.repo.MarkAllChecked(ctx, receiverID); err != nil {
		return err
	}
	s.invalidate(ctx, receiverID)
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	if s.unread != nil {
		count, ok, err := s.unread.Get(ctx, receiverID)
		if err != nil {
			log.L.Warn("unread cache read failed", zap.Uint("receiver", receiverID), zap.Error(err))
		} else if ok {
			return count, nil
		}
	}

	count, err := s.repo.CountUnchecked(ctx, receiverID)
	if err != nil {
		return 0, err
	}
	if s.unread != nil {
		if err := s.unread.Set(ctx, receiverID, count); err != nil {
			log.L.Warn("unread cache write failed", zap.Uint("receiver", receiverID), zap.Error(err))
		}
	}
	return count, nil
}

// SetPostNotice turns the user's notices for a post on or off.
func (s *Service) SetPostNotice(ctx context.Context, postID string, userID uint, on bool) error {
	return s.posts.SetNoticeOff(ctx, postID, userID, !on)
}

// TogglePostNotice flips the user's notice setting for a post and returns
// whether notices are now on.
func (s *Service) TogglePostNotice(ctx context.Context, postID string, userID uint) (bool, error) {
	off, err := s.posts.IsNoticeOff(ctx, postID, userID)
	if err != nil {
		return false, err
	}
	if err := s.posts.SetNoticeOff(ctx, postID, userID, !off); err != nil {
		return false, err
	}
	return off, nil
}

func (s *Service) owned(ctx context.Context, receiverID, id uint) (*models.Notice, error) {
	n, err := s.repo.GetNoticeByID(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, ErrNoticeNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.ReceiverID != receiverID {
		return nil, ErrNoticeNotFound
	}
	return n, nil
}

func (s *Service) invalidate(ctx context.Context, receiverID uint) {
	if s.unread == nil {
		return
	}
	if err := s.unread.Invalidate(ctx, receiverID); err != nil {
		log.L.Warn("unread cache invalidation failed", zap.Uint("receiver", receiverID), zap.Error(err))
	}
}
