package handlers

import (
	"context"
	"sort"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// fakePosts is an in-memory repositories.PostRepository keeping insertion order.
type fakePosts struct {
	posts map[string]models.Post
	order []string
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: make(map[string]models.Post)}
}

// seed stores p under a fresh id and returns the hex id.
func (f *fakePosts) seed(p models.Post) string {
	p.ID = primitive.NewObjectID()
	f.posts[p.ID.Hex()] = p
	f.order = append(f.order, p.ID.Hex())
	return p.ID.Hex()
}

func (f *fakePosts) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	f.posts[post.ID.Hex()] = *post
	f.order = append(f.order, post.ID.Hex())
	return nil
}

func (f *fakePosts) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	return &p, nil
}

func (f *fakePosts) GetSubPosts(ctx context.Context, parentID string) ([]models.Post, error) {
	var subs []models.Post
	for _, id := range f.order {
		if p, ok := f.posts[id]; ok && p.ParentID == parentID {
			subs = append(subs, p)
		}
	}
	return subs, nil
}

func (f *fakePosts) UpdatePost(ctx context.Context, id string, post *models.Post) error {
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	f.posts[id] = *post
	return nil
}

func (f *fakePosts) DeletePost(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePosts) IncrementLikesCount(ctx context.Context, postID string, delta int) error {
	p, ok := f.posts[postID]
	if !ok {
		return repositories.ErrPostNotFound
	}
	p.LikesCount += delta
	f.posts[postID] = p
	return nil
}

func (f *fakePosts) IncrementCommentsCount(ctx context.Context, postID string, delta int) error {
	p, ok := f.posts[postID]
	if !ok {
		return repositories.ErrPostNotFound
	}
	p.CommentsCount += delta
	f.posts[postID] = p
	return nil
}

func (f *fakePosts) IsNoticeOff(ctx context.Context, postID string, userID uint) (bool, error) {
	return false, nil
}

func (f *fakePosts) SetNoticeOff(ctx context.Context, postID string, userID uint, off bool) error {
	return nil
}

// fakeComments is an in-memory repositories.CommentRepository.
type fakeComments struct {
	comments map[uint]models.Comment
	tags     map[uint][]uint
	next     uint
}

func newFakeComments() *fakeComments {
	return &fakeComments{comments: make(map[uint]models.Comment), tags: make(map[uint][]uint)}
}

// seed stores a comment and returns its id.
func (f *fakeComments) seed(postID string, parent *uint, userID uint) uint {
	c := &models.Comment{PostID: postID, ParentID: parent, UserID: userID, Content: "seeded"}
	_ = f.CreateComment(context.Background(), c)
	return c.ID
}

func (f *fakeComments) CreateComment(ctx context.Context, comment *models.Comment) error {
	f.next++
	comment.ID = f.next
	f.comments[comment.ID] = *comment
	return nil
}

func (f *fakeComments) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeComments) list(match func(models.Comment) bool) []models.Comment {
	var out []models.Comment
	for _, c := range f.comments {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeComments) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	return f.list(func(c models.Comment) bool { return c.PostID == postID }), nil
}

func (f *fakeComments) GetReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	return f.list(func(c models.Comment) bool { return c.ParentID != nil && *c.ParentID == parentID }), nil
}

func (f *fakeComments) LatestComment(ctx context.Context, postID string, parentID *uint, excludeUserID uint) (*models.Comment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeComments) UpdateComment(ctx context.Context, comment *models.Comment) error {
	f.comments[comment.ID] = *comment
	return nil
}

func (f *fakeComments) DeleteComment(ctx context.Context, id uint) error {
	delete(f.comments, id)
	delete(f.tags, id)
	return nil
}

func (f *fakeComments) DeleteCommentsByPostID(ctx context.Context, postID string) ([]uint, error) {
	var ids []uint
	for _, c := range f.list(func(c models.Comment) bool { return c.PostID == postID }) {
		ids = append(ids, c.ID)
		_ = f.DeleteComment(ctx, c.ID)
	}
	return ids, nil
}

func (f *fakeComments) GetTaggedUserIDs(ctx context.Context, commentID uint) ([]uint, error) {
	return f.tags[commentID], nil
}

func (f *fakeComments) SetTaggedUserIDs(ctx context.Context, commentID uint, userIDs []uint) error {
	f.tags[commentID] = userIDs
	return nil
}

// fakeLikes is an in-memory repositories.LikeRepository.
type fakeLikes struct {
	posts    map[string]map[uint]bool
	comments map[uint]map[uint]bool
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{posts: make(map[string]map[uint]bool), comments: make(map[uint]map[uint]bool)}
}

func (f *fakeLikes) CreateLike(ctx context.Context, like *models.Like) error {
	if f.posts[like.PostID] == nil {
		f.posts[like.PostID] = make(map[uint]bool)
	}
	f.posts[like.PostID][like.UserID] = true
	return nil
}

func (f *fakeLikes) DeleteLike(ctx context.Context, postID string, userID uint) error {
	if !f.posts[postID][userID] {
		return gorm.ErrRecordNotFound
	}
	delete(f.posts[postID], userID)
	return nil
}

func (f *fakeLikes) HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	return f.posts[postID][userID], nil
}

func (f *fakeLikes) GetLikesCountByPostID(ctx context.Context, postID string) (int64, error) {
	return int64(len(f.posts[postID])), nil
}

func (f *fakeLikes) DeleteLikesByPostID(ctx context.Context, postID string) error {
	delete(f.posts, postID)
	return nil
}

func (f *fakeLikes) CreateCommentLike(ctx context.Context, like *models.CommentLike) error {
	if f.comments[like.CommentID] == nil {
		f.comments[like.CommentID] = make(map[uint]bool)
	}
	f.comments[like.CommentID][like.UserID] = true
	return nil
}

func (f *fakeLikes) DeleteCommentLike(ctx context.Context, commentID, userID uint) error {
	if !f.comments[commentID][userID] {
		return gorm.ErrRecordNotFound
	}
	delete(f.comments[commentID], userID)
	return nil
}

func (f *fakeLikes) HasUserLikedComment(ctx context.Context, commentID, userID uint) (bool, error) {
	return f.comments[commentID][userID], nil
}

func (f *fakeLikes) GetCommentLikesCount(ctx context.Context, commentID uint) (int64, error) {
	return int64(len(f.comments[commentID])), nil
}

// contentFixture wires the post, comment and like handlers to in-memory
// stores, a recording aggregator and the real mention resolver.
type contentFixture struct {
	posts    *fakePosts
	comments *fakeComments
	likes    *fakeLikes
	notices  *recordingNotices
	tags     *notice.MentionResolver
}

func newContentFixture() *contentFixture {
	rec := &recordingNotices{}
	users := fakeUsers{}
	for id := uint(1); id <= 5; id++ {
		users[id] = models.User{ID: id}
	}
	return &contentFixture{
		posts:    newFakePosts(),
		comments: newFakeComments(),
		likes:    newFakeLikes(),
		notices:  rec,
		tags:     notice.NewMentionResolver(rec, users),
	}
}

// as returns an echo instance serving the content routes for userID.
func (f *contentFixture) as(userID uint) *echo.Echo {
	e := newTestEcho()
	g := e.Group("/api/v1", withUser(userID))
	NewPostHandler(f.posts, f.comments, f.likes, f.notices, f.tags).RegisterPostRoutes(g)
	NewCommentHandler(f.comments, f.posts, f.notices, f.tags).RegisterCommentRoutes(g)
	NewLikeHandler(f.likes, f.posts, f.comments, f.notices).RegisterLikeRoutes(g)
	return e
}
