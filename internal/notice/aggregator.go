package notice

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Action is one notice producing (or retracting) event.
type Action struct {
	Kind       models.NoticeKind
	SenderID   uint
	ReceiverID uint
	// PostID is required for post and comment scoped kinds.
	PostID string
	// ParentCommentID names the comment the notice is about. Required for
	// comment scoped kinds.
	ParentCommentID uint
}

func (a Action) validate() error {
	if a.SenderID == 0 || a.ReceiverID == 0 {
		return errors.Wrap(ErrInvalidAction, "sender and receiver are required")
	}
	switch a.Kind.Scope() {
	case models.ScopeComment:
		if a.ParentCommentID == 0 {
			return errors.Wrapf(ErrInvalidAction, "%s requires a parent comment", a.Kind)
		}
		fallthrough
	case models.ScopePost:
		if a.PostID == "" {
			return errors.Wrapf(ErrInvalidAction, "%s requires a post", a.Kind)
		}
	case models.ScopeFriend:
	default:
		return errors.Wrapf(ErrInvalidAction, "unknown notice kind %q", a.Kind)
	}
	return nil
}

// key only carries the context fields the kind's scope matches on.
func (a Action) key() models.NoticeKey {
	k := models.NoticeKey{ReceiverID: a.ReceiverID, Kind: a.Kind}
	switch a.Kind.Scope() {
	case models.ScopeComment:
		k.PostID = a.PostID
		k.ParentCommentID = a.ParentCommentID
	case models.ScopePost:
		k.PostID = a.PostID
	case models.ScopeFriend:
		k.FriendID = a.SenderID
	}
	return k
}

func (a Action) url() string {
	switch a.Kind.Scope() {
	case models.ScopeComment:
		return fmt.Sprintf("/posts/%s/comments/%d", a.PostID, a.ParentCommentID)
	case models.ScopePost:
		return fmt.Sprintf("/posts/%s", a.PostID)
	default:
		return fmt.Sprintf("/users/%d", a.SenderID)
	}
}

// OptOutChecker answers whether a user muted notices for a post.
type OptOutChecker interface {
	IsNoticeOff(ctx context.Context, postID string, userID uint) (bool, error)
}

// Listener is told about every committed notice change. n is nil when the
// receiver's notice was deleted.
type Listener interface {
	NoticeChanged(ctx context.Context, receiverID uint, n *models.Notice) error
}

// Aggregator creates, merges and cancels notices. Every call runs in one
// transaction holding a row lock on the matched notice.
type Aggregator struct {
	repo      repositories.NoticeRepository
	optOut    OptOutChecker
	listeners []Listener
	now       func() time.Time
}

func NewAggregator(repo repositories.NoticeRepository, optOut OptOutChecker) *Aggregator {
	return &Aggregator{repo: repo, optOut: optOut, now: time.Now}
}

func (a *Aggregator) AddListener(l Listener) {
	a.listeners = append(a.listeners, l)
}

type change struct {
	receiverID uint
	notice     *models.Notice
}

// Create records act. It returns the created or bumped notice, or nil when
// the receiver opted out of the post or the sender is the receiver.
func (a *Aggregator) Create(ctx context.Context, act Action) (*models.Notice, error) {
	if off, err := a.suppressed(ctx, act); err != nil || off {
		return nil, err
	}
	if err := act.validate(); err != nil {
		return nil, err
	}
	if act.SenderID == act.ReceiverID {
		return nil, nil
	}

	now := a.now()
	key := act.key()
	var result *models.Notice
	var changes []change

	apply := func(repo repositories.NoticeRepository) error {
		changes = changes[:0]
		if act.Kind == models.KindFriendAccept {
			accepted, err := a.acceptRequest(ctx, repo, act)
			if err != nil {
				return err
			}
			if accepted != nil {
				changes = append(changes, change{accepted.ReceiverID, accepted})
			}
		}

		n, err := repo.FindByKey(ctx, key)
		switch {
		case err == nil:
			// resurfaced notices are unread again; a repeated request is pending again
			n.CreatedAt = now
			n.IsChecked = false
			if n.Kind == models.KindFriendRequest {
				n.IsAccepted = false
			}
			if err := repo.UpdateNotice(ctx, n); err != nil {
				return err
			}
			if err := a.addSender(ctx, repo, n, act.SenderID, now); err != nil {
				return err
			}
		case repositories.IsNotFound(err):
			n = &models.Notice{
				ReceiverID:      key.ReceiverID,
				Kind:            key.Kind,
				PostID:          key.PostID,
				ParentCommentID: key.ParentCommentID,
				FriendID:        key.FriendID,
				URL:             act.url(),
				CreatedAt:       now,
			}
			if err := repo.CreateNotice(ctx, n); err != nil {
				return err
			}
			sender := &models.NoticeSender{NoticeID: n.ID, UserID: act.SenderID, Count: 1, CreatedAt: now, UpdatedAt: now}
			if err := repo.CreateSender(ctx, sender); err != nil {
				return err
			}
		default:
			return err
		}
		result = n
		changes = append(changes, change{n.ReceiverID, n})
		return nil
	}
	err := a.repo.Transaction(ctx, apply)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent first create won the key; the retry matches its row
		err = a.repo.Transaction(ctx, apply)
	}
	if err != nil {
		return nil, translate(err, key)
	}

	log.L.Debug("notice created", zap.Stringer("key", key), zap.Uint("sender", act.SenderID), zap.Uint("notice", result.ID))
	a.notify(ctx, changes...)
	return result, nil
}

// addSender rolls act's sender up into n. Friend notices never count above one.
func (a *Aggregator) addSender(ctx context.Context, repo repositories.NoticeRepository, n *models.Notice, userID uint, now time.Time) error {
	sender, err := repo.FindSender(ctx, n.ID, userID)
	if repositories.IsNotFound(err) {
		return repo.CreateSender(ctx, &models.NoticeSender{NoticeID: n.ID, UserID: userID, Count: 1, CreatedAt: now, UpdatedAt: now})
	}
	if err != nil {
		return err
	}
	if n.Kind.Scope() != models.ScopeFriend {
		sender.Count++
	}
	sender.UpdatedAt = now
	return repo.UpdateSender(ctx, sender)
}

// acceptRequest flags the request notice the accepting user received from the
// requester as accepted and read.
func (a *Aggregator) acceptRequest(ctx context.Context, repo repositories.NoticeRepository, act Action) (*models.Notice, error) {
	req, err := repo.FindByKey(ctx, models.NoticeKey{
		ReceiverID: act.SenderID,
		Kind:       models.KindFriendRequest,
		FriendID:   act.ReceiverID,
	})
	if repositories.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	req.IsAccepted = true
	req.IsChecked = true
	if err := repo.UpdateNotice(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Cancel retracts one contribution of act's sender. It reports whether any
// notice state changed; a missing notice or sender is not an error.
func (a *Aggregator) Cancel(ctx context.Context, act Action) (bool, error) {
	if off, err := a.suppressed(ctx, act); err != nil || off {
		return false, err
	}
	if err := act.validate(); err != nil {
		return false, err
	}
	if act.SenderID == act.ReceiverID {
		return false, nil
	}

	key := act.key()
	var changed *change

	err := a.repo.Transaction(ctx, func(repo repositories.NoticeRepository) error {
		changed = nil
		n, err := repo.FindByKey(ctx, key)
		if repositories.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		if n.Kind == models.KindFriendRequest {
			if err := repo.DeleteNotice(ctx, n.ID); err != nil {
				return err
			}
			changed = &change{receiverID: n.ReceiverID}
			return nil
		}

		sender, err := repo.FindSender(ctx, n.ID, act.SenderID)
		if repositories.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if sender.Count > 1 {
			sender.Count--
			if err := repo.UpdateSender(ctx, sender); err != nil {
				return err
			}
			changed = &change{n.ReceiverID, n}
			return nil
		}

		if err := repo.DeleteSender(ctx, sender.ID); err != nil {
			return err
		}
		remaining, err := repo.CountSenders(ctx, n.ID)
		if err != nil {
			return err
		}
		changed = &change{n.ReceiverID, n}
		if remaining == 0 {
			if err := repo.DeleteNotice(ctx, n.ID); err != nil {
				return err
			}
			changed.notice = nil
		}
		return nil
	})
	if err != nil {
		return false, translate(err, key)
	}
	if changed == nil {
		log.L.Debug("notice cancel matched nothing", zap.Stringer("key", key), zap.Uint("sender", act.SenderID))
		return false, nil
	}

	a.notify(ctx, *changed)
	return true, nil
}

// PurgePost deletes every notice keyed on the post.
func (a *Aggregator) PurgePost(ctx context.Context, postID string) error {
	receivers, err := a.repo.DeleteByPost(ctx, postID)
	if err != nil {
		return err
	}
	a.notifyDeleted(ctx, receivers)
	return nil
}

// PurgeComment deletes every notice keyed on the comment.
func (a *Aggregator) PurgeComment(ctx context.Context, commentID uint) error {
	receivers, err := a.repo.DeleteByComment(ctx, commentID)
	if err != nil {
		return err
	}
	a.notifyDeleted(ctx, receivers)
	return nil
}

// PurgeOlderThan deletes notices last triggered before cutoff and returns how
// many receivers were affected.
func (a *Aggregator) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	receivers, err := a.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	a.notifyDeleted(ctx, receivers)
	return len(receivers), nil
}

func (a *Aggregator) suppressed(ctx context.Context, act Action) (bool, error) {
	if act.PostID == "" || a.optOut == nil {
		return false, nil
	}
	off, err := a.optOut.IsNoticeOff(ctx, act.PostID, act.ReceiverID)
	if repositories.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "check notice opt-out")
	}
	if off {
		log.L.Debug("notice suppressed by opt-out",
			zap.String("kind", string(act.Kind)), zap.String("post", act.PostID), zap.Uint("receiver", act.ReceiverID))
	}
	return off, nil
}

func (a *Aggregator) notifyDeleted(ctx context.Context, receivers []uint) {
	for _, id := range receivers {
		a.notify(ctx, change{receiverID: id})
	}
}

func (a *Aggregator) notify(ctx context.Context, changes ...change) {
	for _, c := range changes {
		for _, l := range a.listeners {
			if err := l.NoticeChanged(ctx, c.receiverID, c.notice); err != nil {
				log.L.Warn("notice listener failed", zap.Uint("receiver", c.receiverID), zap.Error(err))
			}
		}
	}
}

func translate(err error, key models.NoticeKey) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrapf(ErrNoticeConflict, "key %s", key)
	}
	return err
}
