package notice

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// StaleAfter is how long a notice stays visible after it was last triggered.
const StaleAfter = 60 * 24 * time.Hour

const (
	AttachmentPhoto   = "photo"
	AttachmentSticker = "sticker"
	AttachmentElse    = "else"
)

// SenderPreview is the headline contribution of a notice.
type SenderPreview struct {
	Sender         models.UserCompact `json:"sender"`
	CommentID      *uint              `json:"comment_id,omitempty"`
	Content        string             `json:"content,omitempty"`
	AttachmentKind *string            `json:"attachment_kind"`
}

// NoticeView is the rendered notice returned by the API.
type NoticeView struct {
	ID              uint                 `json:"id"`
	Kind            models.NoticeKind    `json:"content"`
	PostID          string               `json:"post_id,omitempty"`
	ParentCommentID uint                 `json:"parent_comment_id,omitempty"`
	URL             string               `json:"url"`
	CreatedAt       time.Time            `json:"created_at"`
	Time            string               `json:"time"`
	IsChecked       bool                 `json:"is_checked"`
	IsAccepted      bool                 `json:"is_accepted"`
	SenderPreview   *SenderPreview       `json:"sender_preview"`
	Count           int                  `json:"count"`
	Senders         []models.UserCompact `json:"senders"`
}

// RelativeTime renders the age of t at now. It returns false once the age
// reaches StaleAfter.
func RelativeTime(now, t time.Time) (string, bool) {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= StaleAfter:
		return "", false
	case d < time.Minute:
		return "방금", true
	case d < time.Hour:
		return fmt.Sprintf("%d분 전", int(d/time.Minute)), true
	case d < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(d/time.Hour)), true
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d일 전", int(d/(24*time.Hour))), true
	default:
		return fmt.Sprintf("%d주 전", int(d/(7*24*time.Hour))), true
	}
}

// AttachmentKind classifies a comment attachment by extension. It returns nil
// when there is no attachment.
func AttachmentKind(file string) *string {
	if file == "" {
		return nil
	}
	if i := strings.IndexAny(file, "?#"); i >= 0 {
		file = file[:i]
	}
	kind := AttachmentElse
	switch strings.ToLower(strings.TrimPrefix(path.Ext(file), ".")) {
	case "jpg", "jpeg", "png":
		kind = AttachmentPhoto
	case "gif":
		kind = AttachmentSticker
	}
	return &kind
}

// UserLookup loads users for rendering.
type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
}

// CommentLookup finds the newest comment under a post or comment thread.
type CommentLookup interface {
	LatestComment(ctx context.Context, postID string, parentID *uint, excludeUserID uint) (*models.Comment, error)
}

// Presenter renders notices without changing them.
type Presenter struct {
	repo     repositories.NoticeRepository
	users    UserLookup
	comments CommentLookup
}

func NewPresenter(repo repositories.NoticeRepository, users UserLookup, comments CommentLookup) *Presenter {
	return &Presenter{repo: repo, users: users, comments: comments}
}

// Present renders n as seen at now. The bool is false when n is stale and
// should be dropped instead of shown.
func (p *Presenter) Present(ctx context.Context, n *models.Notice, now time.Time) (*NoticeView, bool, error) {
	rel, ok := RelativeTime(now, n.CreatedAt)
	if !ok {
		return nil, false, nil
	}

	view := &NoticeView{}
	if err := copier.Copy(view, n); err != nil {
		return nil, false, errors.Wrap(err, "copy notice")
	}
	view.Time = rel
	view.Senders = []models.UserCompact{}

	senders, err := p.repo.ListSenders(ctx, n.ID)
	if err != nil {
		return nil, false, err
	}

	var comment *models.Comment
	if n.Kind.PreviewsComment() && p.comments != nil {
		var parent *uint
		if n.Kind == models.KindCommentComment {
			parent = &n.ParentCommentID
		}
		comment, err = p.comments.LatestComment(ctx, n.PostID, parent, n.ReceiverID)
		if err != nil && !repositories.IsNotFound(err) {
			return nil, false, err
		}
	}

	// a comment written while the receiver had the post muted has no sender row
	if comment != nil && !hasSender(senders, comment.UserID) {
		comment = nil
	}

	var previewUser uint
	switch {
	case comment != nil:
		previewUser = comment.UserID
	case len(senders) > 0:
		// senders are ordered most recently updated first
		previewUser = senders[0].UserID
	}

	ids := make([]uint, 0, len(senders)+1)
	if previewUser != 0 {
		ids = append(ids, previewUser)
	}
	for _, s := range senders {
		if s.UserID != previewUser {
			ids = append(ids, s.UserID)
		}
	}
	users, err := p.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	if previewUser != 0 {
		preview := &SenderPreview{Sender: compact(users, previewUser)}
		if comment != nil {
			id := comment.ID
			preview.CommentID = &id
			preview.Content = comment.Content
			preview.AttachmentKind = AttachmentKind(comment.File)
		}
		view.SenderPreview = preview
	}
	for _, id := range ids {
		if id != previewUser {
			view.Senders = append(view.Senders, compact(users, id))
		}
	}
	view.Count = len(view.Senders)
	return view, true, nil
}

func hasSender(senders []models.NoticeSender, userID uint) bool {
	for _, s := range senders {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// compact falls back to the bare id for users that no longer exist.
func compact(users map[uint]models.User, id uint) models.UserCompact {
	if u, ok := users[id]; ok {
		return u.ToCompact()
	}
	return models.UserCompact{ID: id}
}
