package push

import (
	"context"
	"strconv"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sender delivers one FCM message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type TokenLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Pusher sends a device push whenever a receiver gets a new or resurfaced
// notice.
type Pusher struct {
	client Sender
	users  TokenLookup
}

func NewPusher(client Sender, users TokenLookup) *Pusher {
	return &Pusher{client: client, users: users}
}

func (p *Pusher) NoticeChanged(ctx context.Context, receiverID uint, n *models.Notice) error {
	// deletions and already read notices are silent
	if n == nil || n.IsChecked {
		return nil
	}

	user, err := p.users.GetUserByID(ctx, receiverID)
	if err != nil {
		return errors.Wrap(err, "load push receiver")
	}
	if user.FCMToken == "" {
		return nil
	}

	id, err := p.client.Send(ctx, &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: "새 알림",
			Body:  Body(n.Kind),
		},
		Data: map[string]string{
			"notice_id": strconv.FormatUint(uint64(n.ID), 10),
			"content":   string(n.Kind),
			"url":       n.URL,
		},
	})
	if err != nil {
		return errors.Wrap(err, "send push")
	}
	log.L.Debug("push sent", zap.Uint("receiver", receiverID), zap.String("message", id))
	return nil
}

// Body is the push text for a notice kind.
func Body(kind models.NoticeKind) string {
	switch kind {
	case models.KindPostComment:
		return "회원님의 게시물에 댓글이 달렸습니다."
	case models.KindCommentComment:
		return "회원님의 댓글에 답글이 달렸습니다."
	case models.KindPostLike:
		return "회원님의 게시물을 좋아합니다."
	case models.KindCommentLike:
		return "회원님의 댓글을 좋아합니다."
	case models.KindPostTag:
		return "게시물에서 회원님을 언급했습니다."
	case models.KindCommentTag:
		return "댓글에서 회원님을 언급했습니다."
	case models.KindFriendRequest:
		return "친구 요청을 보냈습니다."
	case models.KindFriendAccept:
		return "친구 요청을 수락했습니다."
	case models.KindIsFriend:
		return "친구가 되었습니다."
	default:
		return "새 알림이 있습니다."
	}
}
