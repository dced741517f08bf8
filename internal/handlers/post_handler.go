package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts and their subposts
type PostHandler struct {
	postRepository    repositories.PostRepository
	commentRepository repositories.CommentRepository
	likeRepository    repositories.LikeRepository
	notices           NoticeWriter
	tags              TagResolver
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, commentRepo repositories.CommentRepository, likeRepo repositories.LikeRepository, notices NoticeWriter, tags TagResolver) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		commentRepository: commentRepo,
		likeRepository:    likeRepo,
		notices:           notices,
		tags:              tags,
	}
}

// PostWithSubPosts is a post as returned by the API
type PostWithSubPosts struct {
	models.Post
	SubPosts []models.Post `json:"sub_posts"`
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:post_id", h.GetPost)
	g.PUT("/posts/:post_id", h.UpdatePost)
	g.DELETE("/posts/:post_id", h.DeletePost)
}

// CreatePost creates a post with its subposts and notifies tagged users
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tagged, err := h.tags.Resolve(ctx, req.Content, req.TaggedUserIDs)
	if err != nil {
		return httpError(err, "")
	}
	post := &models.Post{
		UserID:      userID,
		Content:     req.Content,
		ImageURLs:   req.ImageURLs,
		TaggedUsers: tagged,
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sets := []notice.TagSet{{Target: notice.PostTarget(post.ID.Hex()), Users: tagged}}
	resp := PostWithSubPosts{Post: *post, SubPosts: []models.Post{}}
	for _, sr := range req.SubPosts {
		sub, err := h.createSubPost(ctx, userID, post.ID.Hex(), sr)
		if err != nil {
			return err
		}
		sets = append(sets, notice.TagSet{Target: notice.PostTarget(sub.ID.Hex()), Users: sub.TaggedUsers})
		resp.SubPosts = append(resp.SubPosts, *sub)
	}

	if err := h.tags.OnCreate(ctx, userID, sets...); err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": resp})
}

// GetPost retrieves a post and its subposts
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, c.Param("post_id"))
	if err != nil {
		return httpError(err, "Post not found")
	}
	subs, err := h.postRepository.GetSubPosts(ctx, post.ID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if subs == nil {
		subs = []models.Post{}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": PostWithSubPosts{Post: *post, SubPosts: subs}})
}

// UpdatePost edits a post and its subposts. Tags are diffed per post and
// subpost, so a user moved between subposts gets the old tag notice cancelled
// and a new one created.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return httpError(err, "Post not found")
	}
	if post.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}
	if post.ParentID != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Subposts are edited through their parent post")
	}

	existing, err := h.postRepository.GetSubPosts(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	before := []notice.TagSet{{Target: notice.PostTarget(postID), Users: post.TaggedUsers}}
	current := make(map[string]models.Post, len(existing))
	for _, sub := range existing {
		current[sub.ID.Hex()] = sub
		before = append(before, notice.TagSet{Target: notice.PostTarget(sub.ID.Hex()), Users: sub.TaggedUsers})
	}
	for _, sr := range req.SubPosts {
		if _, ok := current[sr.ID]; sr.ID != "" && !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown subpost "+sr.ID)
		}
	}

	tagged, err := h.tags.Resolve(ctx, req.Content, req.TaggedUserIDs)
	if err != nil {
		return httpError(err, "")
	}
	post.Content = req.Content
	post.ImageURLs = req.ImageURLs
	post.TaggedUsers = tagged
	if err := h.postRepository.UpdatePost(ctx, postID, post); err != nil {
		return httpError(err, "Post not found")
	}

	after := []notice.TagSet{{Target: notice.PostTarget(postID), Users: tagged}}
	resp := PostWithSubPosts{Post: *post, SubPosts: []models.Post{}}
	kept := make(map[string]bool)
	for _, sr := range req.SubPosts {
		var sub *models.Post
		if sr.ID == "" {
			sub, err = h.createSubPost(ctx, userID, postID, sr)
			if err != nil {
				return err
			}
		} else {
			s := current[sr.ID]
			sub = &s
			if sub.TaggedUsers, err = h.tags.Resolve(ctx, sr.Content, sr.TaggedUserIDs); err != nil {
				return httpError(err, "")
			}
			sub.Content = sr.Content
			sub.ImageURLs = sr.ImageURLs
			if err := h.postRepository.UpdatePost(ctx, sr.ID, sub); err != nil {
				return httpError(err, "Subpost not found")
			}
			kept[sr.ID] = true
		}
		after = append(after, notice.TagSet{Target: notice.PostTarget(sub.ID.Hex()), Users: sub.TaggedUsers})
		resp.SubPosts = append(resp.SubPosts, *sub)
	}

	if err := h.tags.Reconcile(ctx, userID, before, after); err != nil {
		return httpError(err, "")
	}

	for id := range current {
		if kept[id] {
			continue
		}
		if err := h.removePost(ctx, id); err != nil {
			return httpError(err, "")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": resp})
}

// DeletePost deletes a post, its subposts and everything hanging off them
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return httpError(err, "Post not found")
	}
	if post.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	subs, err := h.postRepository.GetSubPosts(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, sub := range subs {
		if err := h.removePost(ctx, sub.ID.Hex()); err != nil {
			return httpError(err, "")
		}
	}
	if err := h.removePost(ctx, postID); err != nil {
		return httpError(err, "Post not found")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PostHandler) createSubPost(ctx context.Context, userID uint, parentID string, sr models.SubPostRequest) (*models.Post, error) {
	tagged, err := h.tags.Resolve(ctx, sr.Content, sr.TaggedUserIDs)
	if err != nil {
		return nil, httpError(err, "")
	}
	sub := &models.Post{
		UserID:      userID,
		ParentID:    parentID,
		Content:     sr.Content,
		ImageURLs:   sr.ImageURLs,
		TaggedUsers: tagged,
	}
	if err := h.postRepository.CreatePost(ctx, sub); err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return sub, nil
}

// removePost deletes one post document with its comments, likes and notices.
func (h *PostHandler) removePost(ctx context.Context, postID string) error {
	if _, err := h.commentRepository.DeleteCommentsByPostID(ctx, postID); err != nil {
		return err
	}
	if err := h.likeRepository.DeleteLikesByPostID(ctx, postID); err != nil {
		return err
	}
	if err := h.notices.PurgePost(ctx, postID); err != nil {
		return err
	}
	return h.postRepository.DeletePost(ctx, postID)
}
