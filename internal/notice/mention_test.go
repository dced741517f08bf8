package notice

import (
	"context"
	"testing"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHandles(t *testing.T) {
	cases := []struct {
		content string
		want    []string
	}{
		{"no mentions here", nil},
		{"@alice hi", []string{"alice"}},
		{"hey @alice and @bob.", []string{"alice", "bob"}},
		{"@Alice @alice @ALICE", []string{"Alice"}},
		{"mail me at carol@example.com", nil},
		{"@dave,@erin", []string{"dave", "erin"}},
		{"안녕 @민수 반가워", []string{"민수"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractHandles(tc.content), tc.content)
	}
}

func TestResolve_MergesHandlesAndExplicitIDs(t *testing.T) {
	users := newMemUsers(1, 2, 3)
	r := NewMentionResolver(nil, users)

	ids, err := r.Resolve(context.Background(), "thanks @user2 and @nobody", []uint{3, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 2}, ids)
}

type resolverFixture struct {
	*aggregatorFixture
	resolver *MentionResolver
}

func newResolverFixture() *resolverFixture {
	f := newAggregatorFixture()
	return &resolverFixture{aggregatorFixture: f, resolver: NewMentionResolver(f.agg, nil)}
}

func (f *resolverFixture) hasNotice(key models.NoticeKey) bool {
	_, err := f.repo.FindByKey(context.Background(), key)
	return err == nil
}

func tagKey(receiver uint, target Target) models.NoticeKey {
	return target.action(0, receiver).key()
}

func TestOnCreate_SkipsAuthor(t *testing.T) {
	f := newResolverFixture()
	target := PostTarget(testPost)

	require.NoError(t, f.resolver.OnCreate(context.Background(), 1, TagSet{Target: target, Users: []uint{1, 2, 3, 2}}))

	assert.Len(t, f.repo.notices, 2)
	assert.True(t, f.hasNotice(tagKey(2, target)))
	assert.True(t, f.hasNotice(tagKey(3, target)))
	assert.False(t, f.hasNotice(tagKey(1, target)))
}

// The author tags F1 and F2 in a post, then edits it to tag F1 and F3.
func TestReconcile_PostEditSwapsTags(t *testing.T) {
	f := newResolverFixture()
	ctx := context.Background()
	const author, f1, f2, f3 = 1, 11, 12, 13
	target := PostTarget(testPost)

	before := []TagSet{{Target: target, Users: []uint{f1, f2}}}
	require.NoError(t, f.resolver.OnCreate(ctx, author, before...))
	keep, err := f.repo.FindByKey(ctx, tagKey(f1, target))
	require.NoError(t, err)

	after := []TagSet{{Target: target, Users: []uint{f1, f3}}}
	require.NoError(t, f.resolver.Reconcile(ctx, author, before, after))

	still, err := f.repo.FindByKey(ctx, tagKey(f1, target))
	require.NoError(t, err)
	assert.Equal(t, keep.ID, still.ID)
	assert.Equal(t, keep.CreatedAt, still.CreatedAt, "unchanged tags are not touched")
	assert.Equal(t, 1, f.repo.senderCount(still.ID, author))

	assert.False(t, f.hasNotice(tagKey(f2, target)))
	assert.True(t, f.hasNotice(tagKey(f3, target)))
	assert.Len(t, f.repo.notices, 2)
}

func TestReconcile_MoveBetweenSubposts(t *testing.T) {
	f := newResolverFixture()
	ctx := context.Background()
	subA := PostTarget("65f1c0ffee00000000000001")
	subB := PostTarget("65f1c0ffee00000000000002")
	f.posts.off[subA.PostID] = map[uint]bool{}
	f.posts.off[subB.PostID] = map[uint]bool{}

	before := []TagSet{{Target: subA, Users: []uint{5}}, {Target: subB}}
	after := []TagSet{{Target: subA}, {Target: subB, Users: []uint{5}}}
	require.NoError(t, f.resolver.OnCreate(ctx, 1, before...))
	require.NoError(t, f.resolver.Reconcile(ctx, 1, before, after))

	assert.False(t, f.hasNotice(tagKey(5, subA)))
	assert.True(t, f.hasNotice(tagKey(5, subB)))
}

func TestReconcile_CommentTags(t *testing.T) {
	f := newResolverFixture()
	ctx := context.Background()
	target := CommentTarget(testPost, 42)

	require.NoError(t, f.resolver.OnCreate(ctx, 1, TagSet{Target: target, Users: []uint{2}}))
	n, err := f.repo.FindByKey(ctx, tagKey(2, target))
	require.NoError(t, err)
	assert.Equal(t, models.KindCommentTag, n.Kind)
	assert.Equal(t, uint(42), n.ParentCommentID)

	require.NoError(t, f.resolver.Reconcile(ctx, 1,
		[]TagSet{{Target: target, Users: []uint{2}}},
		[]TagSet{{Target: target}}))
	assert.Empty(t, f.repo.notices)
}
