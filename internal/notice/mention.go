package notice

import (
	"context"
	"regexp"
	"strings"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/pkg/errors"
)

var handlePattern = regexp.MustCompile(`(?:^|[^\w@])@([\p{L}\p{N}_.]+)`)

// ExtractHandles returns the @handles in content in order of first
// appearance, without duplicates. Handles compare case-insensitively.
func ExtractHandles(content string) []string {
	var handles []string
	seen := make(map[string]bool)
	for _, m := range handlePattern.FindAllStringSubmatch(content, -1) {
		h := strings.TrimRight(m[1], ".")
		key := strings.ToLower(h)
		if h == "" || seen[key] {
			continue
		}
		seen[key] = true
		handles = append(handles, h)
	}
	return handles
}

// Target is the post, subpost or comment a tag set belongs to.
type Target struct {
	Kind      models.NoticeKind // KindPostTag or KindCommentTag
	PostID    string
	CommentID uint
}

func PostTarget(postID string) Target {
	return Target{Kind: models.KindPostTag, PostID: postID}
}

func CommentTarget(postID string, commentID uint) Target {
	return Target{Kind: models.KindCommentTag, PostID: postID, CommentID: commentID}
}

// TagSet is the users tagged in one target.
type TagSet struct {
	Target Target
	Users  []uint
}

// Notifier is the part of the Aggregator the resolver drives.
type Notifier interface {
	Create(ctx context.Context, act Action) (*models.Notice, error)
	Cancel(ctx context.Context, act Action) (bool, error)
}

// HandleLookup resolves handles to users.
type HandleLookup interface {
	GetUsersByNames(ctx context.Context, names []string) ([]models.User, error)
}

// MentionResolver turns tag set changes into PostTag and CommentTag notices.
type MentionResolver struct {
	notifier Notifier
	users    HandleLookup
}

func NewMentionResolver(notifier Notifier, users HandleLookup) *MentionResolver {
	return &MentionResolver{notifier: notifier, users: users}
}

// Resolve merges the users mentioned by handle in content into explicit.
// Unknown handles are ignored.
func (r *MentionResolver) Resolve(ctx context.Context, content string, explicit []uint) ([]uint, error) {
	ids := dedupe(explicit)
	handles := ExtractHandles(content)
	if len(handles) == 0 || r.users == nil {
		return ids, nil
	}
	users, err := r.users.GetUsersByNames(ctx, handles)
	if err != nil {
		return nil, errors.Wrap(err, "resolve mentions")
	}
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return dedupe(ids), nil
}

// OnCreate notifies every user tagged in freshly created targets.
func (r *MentionResolver) OnCreate(ctx context.Context, author uint, sets ...TagSet) error {
	return r.Reconcile(ctx, author, nil, sets)
}

// Reconcile diffs the tag sets of an edit per target. Removed users get their
// tag notice cancelled and added users get one created; users kept on the same
// target are left alone. A user moved to another target counts as removed from
// the old one and added to the new one. The author is never notified.
func (r *MentionResolver) Reconcile(ctx context.Context, author uint, before, after []TagSet) error {
	old := index(before)
	cur := index(after)

	for _, set := range before {
		for _, user := range dedupe(set.Users) {
			if user == author || cur[set.Target][user] {
				continue
			}
			if _, err := r.notifier.Cancel(ctx, set.Target.action(author, user)); err != nil {
				return err
			}
		}
	}
	for _, set := range after {
		for _, user := range dedupe(set.Users) {
			if user == author || old[set.Target][user] {
				continue
			}
			if _, err := r.notifier.Create(ctx, set.Target.action(author, user)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t Target) action(author, user uint) Action {
	return Action{
		Kind:            t.Kind,
		SenderID:        author,
		ReceiverID:      user,
		PostID:          t.PostID,
		ParentCommentID: t.CommentID,
	}
}

func index(sets []TagSet) map[Target]map[uint]bool {
	m := make(map[Target]map[uint]bool, len(sets))
	for _, set := range sets {
		users := m[set.Target]
		if users == nil {
			users = make(map[uint]bool, len(set.Users))
			m[set.Target] = users
		}
		for _, u := range set.Users {
			users[u] = true
		}
	}
	return m
}

func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
