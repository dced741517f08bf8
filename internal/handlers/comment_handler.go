package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	notices           NoticeWriter
	tags              TagResolver
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, notices NoticeWriter, tags TagResolver) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		notices:           notices,
		tags:              tags,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a comment on a post, or a reply when parent_id is set
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return httpError(err, "Post not found")
	}

	var parent *models.Comment
	if req.ParentID != nil {
		parent, err = h.commentRepository.GetCommentByID(ctx, *req.ParentID)
		if err != nil {
			return httpError(err, "Parent comment not found")
		}
		// replies only go one level deep
		if parent.PostID != postID || parent.ParentID != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent comment")
		}
	}

	tagged, err := h.tags.Resolve(ctx, req.Content, req.TaggedUserIDs)
	if err != nil {
		return httpError(err, "")
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  req.Content,
		File:     req.File,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.commentRepository.SetTaggedUserIDs(ctx, comment.ID, tagged); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.adjustCount(c, postID, 1)

	act := notice.Action{Kind: models.KindPostComment, SenderID: userID, ReceiverID: post.UserID, PostID: postID}
	if parent != nil {
		act = notice.Action{Kind: models.KindCommentComment, SenderID: userID, ReceiverID: parent.UserID, PostID: postID, ParentCommentID: parent.ID}
	}
	if _, err := h.notices.Create(ctx, act); err != nil {
		return httpError(err, "")
	}
	if err := h.tags.OnCreate(ctx, userID, notice.TagSet{Target: notice.CommentTarget(postID, comment.ID), Users: tagged}); err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": comment})
}

// GetCommentsByPostID retrieves all comments for a specific post
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		return httpError(err, "Post not found")
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": comments})
}

// UpdateComment edits a comment and re-diffs its mentions
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	commentID, err := parseUintParam(c, "id", "comment ID")
	if err != nil {
		return err
	}

	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return httpError(err, "Comment not found")
	}
	if comment.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this comment")
	}

	before, err := h.commentRepository.GetTaggedUserIDs(ctx, comment.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	after, err := h.tags.Resolve(ctx, req.Content, req.TaggedUserIDs)
	if err != nil {
		return httpError(err, "")
	}

	comment.Content = req.Content
	if err := h.commentRepository.UpdateComment(ctx, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.commentRepository.SetTaggedUserIDs(ctx, comment.ID, after); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	target := notice.CommentTarget(comment.PostID, comment.ID)
	err = h.tags.Reconcile(ctx, userID,
		[]notice.TagSet{{Target: target, Users: before}},
		[]notice.TagSet{{Target: target, Users: after}})
	if err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": comment})
}

// DeleteComment deletes a comment with its replies and every notice about them
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	commentID, err := parseUintParam(c, "id", "comment ID")
	if err != nil {
		return err
	}

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return httpError(err, "Comment not found")
	}
	if comment.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.cancelContribution(c, comment); err != nil {
		return httpError(err, "")
	}

	removed := 1
	if comment.ParentID == nil {
		replies, err := h.commentRepository.GetReplies(ctx, comment.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		for _, reply := range replies {
			if err := h.notices.PurgeComment(ctx, reply.ID); err != nil {
				return httpError(err, "")
			}
			if err := h.commentRepository.DeleteComment(ctx, reply.ID); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		removed += len(replies)
	}

	if err := h.notices.PurgeComment(ctx, comment.ID); err != nil {
		return httpError(err, "")
	}
	if err := h.commentRepository.DeleteComment(ctx, comment.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.adjustCount(c, comment.PostID, -removed)

	return c.NoContent(http.StatusNoContent)
}

// cancelContribution retracts the PostComment or CommentComment notice the
// comment fed into.
func (h *CommentHandler) cancelContribution(c echo.Context, comment *models.Comment) error {
	ctx := c.Request().Context()
	if comment.ParentID != nil {
		parent, err := h.commentRepository.GetCommentByID(ctx, *comment.ParentID)
		if repositories.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = h.notices.Cancel(ctx, notice.Action{
			Kind:            models.KindCommentComment,
			SenderID:        comment.UserID,
			ReceiverID:      parent.UserID,
			PostID:          comment.PostID,
			ParentCommentID: parent.ID,
		})
		return err
	}

	post, err := h.postRepository.GetPostByID(ctx, comment.PostID)
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = h.notices.Cancel(ctx, notice.Action{
		Kind:       models.KindPostComment,
		SenderID:   comment.UserID,
		ReceiverID: post.UserID,
		PostID:     comment.PostID,
	})
	return err
}

func (h *CommentHandler) adjustCount(c echo.Context, postID string, delta int) {
	if err := h.postRepository.IncrementCommentsCount(c.Request().Context(), postID, delta); err != nil {
		log.L.Warn("update comments count", zap.String("post", postID), zap.Error(err))
	}
}
