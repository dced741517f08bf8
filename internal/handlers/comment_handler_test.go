package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommentNotifiesAuthors(t *testing.T) {
	f := newContentFixture()
	post := f.posts.seed(models.Post{UserID: 1, Content: "hello"})
	path := "/api/v1/posts/" + post + "/comments"

	rec := serve(t, f.as(2), http.MethodPost, path, `{"content":"nice","tagged_user_ids":[4]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	root := f.comments.next

	rec = serve(t, f.as(3), http.MethodPost, path, fmt.Sprintf(`{"content":"agreed","parent_id":%d}`, root))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, []notice.Action{
		{Kind: models.KindPostComment, SenderID: 2, ReceiverID: 1, PostID: post},
		{Kind: models.KindCommentTag, SenderID: 2, ReceiverID: 4, PostID: post, ParentCommentID: root},
		{Kind: models.KindCommentComment, SenderID: 3, ReceiverID: 2, PostID: post, ParentCommentID: root},
	}, f.notices.created)
	assert.Equal(t, []uint{4}, f.comments.tags[root])
	assert.Equal(t, 2, f.posts.posts[post].CommentsCount)
}

func TestCreateCommentRejectsInvalidParent(t *testing.T) {
	f := newContentFixture()
	post := f.posts.seed(models.Post{UserID: 1})
	other := f.posts.seed(models.Post{UserID: 5})
	root := f.comments.seed(post, nil, 2)
	reply := f.comments.seed(post, &root, 3)
	foreign := f.comments.seed(other, nil, 4)
	path := "/api/v1/posts/" + post + "/comments"

	for name, parent := range map[string]uint{"reply": reply, "other post": foreign} {
		rec := serve(t, f.as(2), http.MethodPost, path, fmt.Sprintf(`{"content":"x","parent_id":%d}`, parent))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Equal(t, http.StatusNotFound, serve(t, f.as(2), http.MethodPost, path, `{"content":"x","parent_id":99}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, f.as(2), http.MethodPost, "/api/v1/posts/nope/comments", `{"content":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, f.as(2), http.MethodPost, path, `{}`).Code)
	assert.Empty(t, f.notices.created)
	assert.Len(t, f.comments.comments, 3)
}

func TestUpdateCommentReconcilesTags(t *testing.T) {
	f := newContentFixture()
	post := f.posts.seed(models.Post{UserID: 1})
	id := f.comments.seed(post, nil, 2)
	f.comments.tags[id] = []uint{3, 4}

	rec := serve(t, f.as(2), http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", id), `{"content":"edited","tagged_user_ids":[4,5]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []notice.Action{
		{Kind: models.KindCommentTag, SenderID: 2, ReceiverID: 3, PostID: post, ParentCommentID: id},
	}, f.notices.cancelled)
	assert.Equal(t, []notice.Action{
		{Kind: models.KindCommentTag, SenderID: 2, ReceiverID: 5, PostID: post, ParentCommentID: id},
	}, f.notices.created)
	assert.Equal(t, []uint{4, 5}, f.comments.tags[id])

	rec = serve(t, f.as(3), http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", id), `{"content":"hijack"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteReplyCancelsCommentComment(t *testing.T) {
	f := newContentFixture()
	post := f.posts.seed(models.Post{UserID: 1, CommentsCount: 2})
	root := f.comments.seed(post, nil, 2)
	reply := f.comments.seed(post, &root, 3)

	rec := serve(t, f.as(2), http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", reply), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, f.as(3), http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", reply), "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, []notice.Action{
		{Kind: models.KindCommentComment, SenderID: 3, ReceiverID: 2, PostID: post, ParentCommentID: root},
	}, f.notices.cancelled)
	assert.Equal(t, []uint{reply}, f.notices.purgedThread)
	assert.Contains(t, f.comments.comments, root)
	assert.NotContains(t, f.comments.comments, reply)
	assert.Equal(t, 1, f.posts.posts[post].CommentsCount)
}

func TestDeleteCommentPurgesReplies(t *testing.T) {
	f := newContentFixture()
	post := f.posts.seed(models.Post{UserID: 1, CommentsCount: 3})
	root := f.comments.seed(post, nil, 2)
	first := f.comments.seed(post, &root, 3)
	second := f.comments.seed(post, &root, 4)

	rec := serve(t, f.as(2), http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", root), "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, []notice.Action{
		{Kind: models.KindPostComment, SenderID: 2, ReceiverID: 1, PostID: post},
	}, f.notices.cancelled)
	assert.Equal(t, []uint{first, second, root}, f.notices.purgedThread)
	assert.Empty(t, f.comments.comments)
	assert.Zero(t, f.posts.posts[post].CommentsCount)
}
