package notice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"gorm.io/gorm"
)

// memNoticeRepo is an in-memory repositories.NoticeRepository.
type memNoticeRepo struct {
	notices    map[uint]models.Notice
	senders    map[uint]models.NoticeSender
	nextNotice uint
	nextSender uint

	// createErr, when set, is returned by CreateNotice.
	createErr error
	// racer, when set, wins the next CreateNotice for the same key.
	racer uint
}

func newMemNoticeRepo() *memNoticeRepo {
	return &memNoticeRepo{
		notices: make(map[uint]models.Notice),
		senders: make(map[uint]models.NoticeSender),
	}
}

func (r *memNoticeRepo) Transaction(ctx context.Context, fn func(repo repositories.NoticeRepository) error) error {
	return fn(r)
}

func (r *memNoticeRepo) FindByKey(ctx context.Context, key models.NoticeKey) (*models.Notice, error) {
	for _, n := range r.notices {
		if n.Key() == key {
			n := n
			return &n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memNoticeRepo) GetNoticeByID(ctx context.Context, id uint) (*models.Notice, error) {
	n, ok := r.notices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (r *memNoticeRepo) ListByReceiver(ctx context.Context, receiverID uint) ([]models.Notice, error) {
	var out []models.Notice
	for _, n := range r.notices {
		if n.ReceiverID == receiverID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memNoticeRepo) CountUnchecked(ctx context.Context, receiverID uint) (int64, error) {
	var count int64
	for _, n := range r.notices {
		if n.ReceiverID == receiverID && !n.IsChecked {
			count++
		}
	}
	return count, nil
}

func (r *memNoticeRepo) CreateNotice(ctx context.Context, n *models.Notice) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.racer != 0 {
		winner := *n
		winner.ID = 0
		racer := r.racer
		r.racer = 0
		if err := r.CreateNotice(ctx, &winner); err != nil {
			return err
		}
		_ = r.CreateSender(ctx, &models.NoticeSender{NoticeID: winner.ID, UserID: racer, Count: 1, CreatedAt: n.CreatedAt, UpdatedAt: n.CreatedAt})
		return gorm.ErrDuplicatedKey
	}
	if _, err := r.FindByKey(ctx, n.Key()); err == nil {
		return gorm.ErrDuplicatedKey
	}
	r.nextNotice++
	n.ID = r.nextNotice
	r.notices[n.ID] = *n
	return nil
}

func (r *memNoticeRepo) UpdateNotice(ctx context.Context, n *models.Notice) error {
	r.notices[n.ID] = *n
	return nil
}

func (r *memNoticeRepo) MarkChecked(ctx context.Context, id uint) error {
	if n, ok := r.notices[id]; ok {
		n.IsChecked = true
		r.notices[id] = n
	}
	return nil
}

func (r *memNoticeRepo) MarkAllChecked(ctx context.Context, receiverID uint) error {
	for id, n := range r.notices {
		if n.ReceiverID == receiverID {
			n.IsChecked = true
			r.notices[id] = n
		}
	}
	return nil
}

func (r *memNoticeRepo) DeleteNotice(ctx context.Context, id uint) error {
	for sid, s := range r.senders {
		if s.NoticeID == id {
			delete(r.senders, sid)
		}
	}
	delete(r.notices, id)
	return nil
}

func (r *memNoticeRepo) deleteWhere(match func(models.Notice) bool) []uint {
	var receivers []uint
	seen := make(map[uint]bool)
	for id, n := range r.notices {
		if !match(n) {
			continue
		}
		if !seen[n.ReceiverID] {
			seen[n.ReceiverID] = true
			receivers = append(receivers, n.ReceiverID)
		}
		_ = r.DeleteNotice(context.Background(), id)
	}
	return receivers
}

func (r *memNoticeRepo) DeleteByPost(ctx context.Context, postID string) ([]uint, error) {
	return r.deleteWhere(func(n models.Notice) bool { return n.PostID == postID }), nil
}

func (r *memNoticeRepo) DeleteByComment(ctx context.Context, commentID uint) ([]uint, error) {
	return r.deleteWhere(func(n models.Notice) bool { return n.ParentCommentID == commentID }), nil
}

func (r *memNoticeRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]uint, error) {
	return r.deleteWhere(func(n models.Notice) bool { return n.CreatedAt.Before(cutoff) }), nil
}

func (r *memNoticeRepo) FindSender(ctx context.Context, noticeID, userID uint) (*models.NoticeSender, error) {
	for _, s := range r.senders {
		if s.NoticeID == noticeID && s.UserID == userID {
			s := s
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memNoticeRepo) ListSenders(ctx context.Context, noticeID uint) ([]models.NoticeSender, error) {
	var out []models.NoticeSender
	for _, s := range r.senders {
		if s.NoticeID == noticeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memNoticeRepo) CountSenders(ctx context.Context, noticeID uint) (int64, error) {
	senders, _ := r.ListSenders(ctx, noticeID)
	return int64(len(senders)), nil
}

func (r *memNoticeRepo) CreateSender(ctx context.Context, s *models.NoticeSender) error {
	r.nextSender++
	s.ID = r.nextSender
	r.senders[s.ID] = *s
	return nil
}

func (r *memNoticeRepo) UpdateSender(ctx context.Context, s *models.NoticeSender) error {
	r.senders[s.ID] = *s
	return nil
}

func (r *memNoticeRepo) DeleteSender(ctx context.Context, id uint) error {
	delete(r.senders, id)
	return nil
}

func (r *memNoticeRepo) senderCount(noticeID, userID uint) int {
	s, err := r.FindSender(context.Background(), noticeID, userID)
	if err != nil {
		return 0
	}
	return s.Count
}

// memPosts holds notice_off_users per post.
type memPosts struct {
	off map[string]map[uint]bool
}

func newMemPosts(ids ...string) *memPosts {
	p := &memPosts{off: make(map[string]map[uint]bool)}
	for _, id := range ids {
		p.off[id] = make(map[uint]bool)
	}
	return p
}

func (p *memPosts) IsNoticeOff(ctx context.Context, postID string, userID uint) (bool, error) {
	users, ok := p.off[postID]
	if !ok {
		return false, repositories.ErrPostNotFound
	}
	return users[userID], nil
}

func (p *memPosts) SetNoticeOff(ctx context.Context, postID string, userID uint, off bool) error {
	users, ok := p.off[postID]
	if !ok {
		return repositories.ErrPostNotFound
	}
	if off {
		users[userID] = true
	} else {
		delete(users, userID)
	}
	return nil
}

type memUsers map[uint]models.User

func newMemUsers(ids ...uint) memUsers {
	users := make(memUsers)
	for _, id := range ids {
		users[id] = models.User{ID: id, Name: userName(id)}
	}
	return users
}

func userName(id uint) string {
	return fmt.Sprintf("user%d", id)
}

func (m memUsers) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User)
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m memUsers) GetUsersByNames(ctx context.Context, names []string) ([]models.User, error) {
	var out []models.User
	for _, name := range names {
		for _, u := range m {
			if strings.EqualFold(u.Name, name) {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type memComments struct {
	comments []models.Comment
}

func (m *memComments) add(postID string, parent *uint, userID uint, content, file string) models.Comment {
	c := models.Comment{PostID: postID, ParentID: parent, UserID: userID, Content: content, File: file}
	c.ID = uint(len(m.comments) + 1)
	m.comments = append(m.comments, c)
	return c
}

func (m *memComments) remove(id uint) {
	for i, c := range m.comments {
		if c.ID == id {
			m.comments = append(m.comments[:i], m.comments[i+1:]...)
			return
		}
	}
}

func (m *memComments) LatestComment(ctx context.Context, postID string, parentID *uint, excludeUserID uint) (*models.Comment, error) {
	for i := len(m.comments) - 1; i >= 0; i-- {
		c := m.comments[i]
		if c.PostID != postID || c.UserID == excludeUserID {
			continue
		}
		if (parentID == nil) != (c.ParentID == nil) {
			continue
		}
		if parentID != nil && *parentID != *c.ParentID {
			continue
		}
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// clock advances one second every time it is read.
type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingListener struct {
	receivers []uint
	deleted   int
}

func (l *recordingListener) NoticeChanged(ctx context.Context, receiverID uint, n *models.Notice) error {
	l.receivers = append(l.receivers, receiverID)
	if n == nil {
		l.deleted++
	}
	return nil
}

type memUnread struct {
	counts      map[uint]int64
	invalidated []uint
}

func newMemUnread() *memUnread {
	return &memUnread{counts: make(map[uint]int64)}
}

func (m *memUnread) Get(ctx context.Context, receiverID uint) (int64, bool, error) {
	c, ok := m.counts[receiverID]
	return c, ok, nil
}

func (m *memUnread) Set(ctx context.Context, receiverID uint, count int64) error {
	m.counts[receiverID] = count
	return nil
}

func (m *memUnread) Invalidate(ctx context.Context, receiverID uint) error {
	delete(m.counts, receiverID)
	m.invalidated = append(m.invalidated, receiverID)
	return nil
}
