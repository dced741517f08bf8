package models

import (
	"fmt"
	"time"
)

// NoticeKind is the closed set of notice kinds, persisted in the content column.
type NoticeKind string

const (
	KindPostComment    NoticeKind = "PostComment"
	KindCommentComment NoticeKind = "CommentComment"
	KindPostLike       NoticeKind = "PostLike"
	KindCommentLike    NoticeKind = "CommentLike"
	KindPostTag        NoticeKind = "PostTag"
	KindCommentTag     NoticeKind = "CommentTag"
	KindFriendRequest  NoticeKind = "FriendRequest"
	KindFriendAccept   NoticeKind = "FriendAccept"
	KindIsFriend       NoticeKind = "isFriend"
)

// NoticeScope decides which context fields take part in a notice's key.
type NoticeScope int

const (
	ScopeInvalid NoticeScope = iota
	ScopePost
	ScopeComment
	ScopeFriend
)

func (k NoticeKind) Scope() NoticeScope {
	switch k {
	case KindPostComment, KindPostLike, KindPostTag:
		return ScopePost
	case KindCommentComment, KindCommentLike, KindCommentTag:
		return ScopeComment
	case KindFriendRequest, KindFriendAccept, KindIsFriend:
		return ScopeFriend
	default:
		return ScopeInvalid
	}
}

func (k NoticeKind) Valid() bool {
	return k.Scope() != ScopeInvalid
}

// PreviewsComment reports whether the notice headline is the latest comment
// rather than the latest sender.
func (k NoticeKind) PreviewsComment() bool {
	return k == KindPostComment || k == KindCommentComment
}

// Notice is a mergeable notification: one row per NoticeKey.
type Notice struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ReceiverID      uint       `json:"receiver_id" gorm:"not null;index:idx_notice_receiver_created,priority:1;uniqueIndex:idx_notice_key,priority:1"`
	Kind            NoticeKind `json:"content" gorm:"column:content;size:30;not null;uniqueIndex:idx_notice_key,priority:2"`
	PostID          string     `json:"post_id,omitempty" gorm:"size:24;not null;default:'';index;uniqueIndex:idx_notice_key,priority:3"`
	ParentCommentID uint       `json:"parent_comment_id,omitempty" gorm:"not null;default:0;index;uniqueIndex:idx_notice_key,priority:4"`
	FriendID        uint       `json:"friend_id,omitempty" gorm:"not null;default:0;uniqueIndex:idx_notice_key,priority:5"`
	URL             string     `json:"url"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index:idx_notice_receiver_created,priority:2"`
	IsChecked       bool       `json:"is_checked" gorm:"not null;default:false"`
	IsAccepted      bool       `json:"is_accepted" gorm:"not null;default:false"`
}

// Key returns the matching key the notice is stored under.
func (n *Notice) Key() NoticeKey {
	return NoticeKey{
		ReceiverID:      n.ReceiverID,
		Kind:            n.Kind,
		PostID:          n.PostID,
		ParentCommentID: n.ParentCommentID,
		FriendID:        n.FriendID,
	}
}

// NoticeSender is one contributor's roll-up row under a notice.
type NoticeSender struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	NoticeID  uint      `json:"notice_id" gorm:"not null;uniqueIndex:idx_notice_sender"`
	UserID    uint      `json:"user_id" gorm:"not null;index;uniqueIndex:idx_notice_sender"`
	Count     int       `json:"count" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoticeKey identifies at most one active notice. Fields outside the kind's
// scope are zero.
type NoticeKey struct {
	ReceiverID      uint
	Kind            NoticeKind
	PostID          string
	ParentCommentID uint
	FriendID        uint
}

func (k NoticeKey) String() string {
	return fmt.Sprintf("%d/%s/%s/%d/%d", k.ReceiverID, k.Kind, k.PostID, k.ParentCommentID, k.FriendID)
}

// PostNoticeRequest switches a user's notices for a post. A missing On
// toggles the current setting.
type PostNoticeRequest struct {
	On *bool `json:"on"`
}
