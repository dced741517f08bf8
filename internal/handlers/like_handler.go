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

// LikeHandler handles HTTP requests related to post and comment likes
type LikeHandler struct {
	likeRepository    repositories.LikeRepository
	postRepository    repositories.PostRepository
	commentRepository repositories.CommentRepository
	notices           NoticeWriter
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, commentRepo repositories.CommentRepository, notices NoticeWriter) *LikeHandler {
	return &LikeHandler{
		likeRepository:    likeRepo,
		postRepository:    postRepo,
		commentRepository: commentRepo,
		notices:           notices,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.LikePost)
	g.DELETE("/posts/:post_id/likes", h.UnlikePost)
	g.GET("/posts/:post_id/likes/count", h.GetLikesCountForPost)
	g.GET("/posts/:post_id/likes/status", h.GetUserLikeStatusForPost)
	g.POST("/comments/:id/likes", h.LikeComment)
	g.DELETE("/comments/:id/likes", h.UnlikeComment)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
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

	hasLiked, err := h.likeRepository.HasUserLikedPost(ctx, postID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hasLiked {
		return echo.NewHTTPError(http.StatusConflict, "Post already liked by this user")
	}

	like := &models.Like{PostID: postID, UserID: userID}
	if err := h.likeRepository.CreateLike(ctx, like); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.adjustLikes(c, postID, 1)

	act := notice.Action{Kind: models.KindPostLike, SenderID: userID, ReceiverID: post.UserID, PostID: postID}
	if _, err := h.notices.Create(ctx, act); err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": like})
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
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

	if err := h.likeRepository.DeleteLike(ctx, postID, userID); err != nil {
		return httpError(err, "Like not found")
	}
	h.adjustLikes(c, postID, -1)

	act := notice.Action{Kind: models.KindPostLike, SenderID: userID, ReceiverID: post.UserID, PostID: postID}
	if _, err := h.notices.Cancel(ctx, act); err != nil {
		return httpError(err, "")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetLikesCountForPost retrieves the number of likes for a post
func (h *LikeHandler) GetLikesCountForPost(c echo.Context) error {
	postID := c.Param("post_id")

	count, err := h.likeRepository.GetLikesCountByPostID(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(c.Request().Context(), c.Param("post_id"), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": hasLiked}})
}

// LikeComment handles liking a comment or reply
func (h *LikeHandler) LikeComment(c echo.Context) error {
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

	hasLiked, err := h.likeRepository.HasUserLikedComment(ctx, commentID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hasLiked {
		return echo.NewHTTPError(http.StatusConflict, "Comment already liked by this user")
	}

	like := &models.CommentLike{CommentID: commentID, UserID: userID}
	if err := h.likeRepository.CreateCommentLike(ctx, like); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := h.notices.Create(ctx, commentLikeAction(userID, comment)); err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": like})
}

// UnlikeComment handles removing a like from a comment or reply
func (h *LikeHandler) UnlikeComment(c echo.Context) error {
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

	if err := h.likeRepository.DeleteCommentLike(ctx, commentID, userID); err != nil {
		return httpError(err, "Like not found")
	}

	if _, err := h.notices.Cancel(ctx, commentLikeAction(userID, comment)); err != nil {
		return httpError(err, "")
	}

	return c.NoContent(http.StatusNoContent)
}

func commentLikeAction(userID uint, comment *models.Comment) notice.Action {
	return notice.Action{
		Kind:            models.KindCommentLike,
		SenderID:        userID,
		ReceiverID:      comment.UserID,
		PostID:          comment.PostID,
		ParentCommentID: comment.ID,
	}
}

func (h *LikeHandler) adjustLikes(c echo.Context, postID string, delta int) {
	if err := h.postRepository.IncrementLikesCount(c.Request().Context(), postID, delta); err != nil {
		log.L.Warn("update likes count", zap.String("post", postID), zap.Error(err))
	}
}
