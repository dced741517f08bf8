package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/labstack/echo/v4"
)

// NoticeReader is the receiver facing notice service.
type NoticeReader interface {
	List(ctx context.Context, receiverID uint) ([]notice.NoticeView, error)
	Detail(ctx context.Context, receiverID, id uint) (*notice.NoticeView, error)
	Delete(ctx context.Context, receiverID, id uint) error
	CheckAll(ctx context.Context, receiverID uint) error
	UnreadCount(ctx context.Context, receiverID uint) (int64, error)
	SetPostNotice(ctx context.Context, postID string, userID uint, on bool) error
	TogglePostNotice(ctx context.Context, postID string, userID uint) (bool, error)
}

// NoticeHandler handles notice-related HTTP requests
type NoticeHandler struct {
	notices NoticeReader
}

// NewNoticeHandler creates a new NoticeHandler
func NewNoticeHandler(notices NoticeReader) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

// RegisterNoticeRoutes registers notice routes
func (h *NoticeHandler) RegisterNoticeRoutes(g *echo.Group) {
	g.GET("/notices", h.GetNotices)
	g.GET("/notices/unread-count", h.GetUnreadCount)
	g.PUT("/notices/check-all", h.CheckAll)
	g.GET("/notices/:id", h.GetNotice)
	g.DELETE("/notices/:id", h.DeleteNotice)
	g.PUT("/posts/:post_id/notice", h.SetPostNotice)
}

// GetNotices returns the authenticated user's notices, most recent first
func (h *NoticeHandler) GetNotices(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	views, err := h.notices.List(c.Request().Context(), userID)
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": views})
}

// GetNotice returns one notice and marks it checked
func (h *NoticeHandler) GetNotice(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id", "notice ID")
	if err != nil {
		return err
	}

	view, err := h.notices.Detail(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err, "Notice not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": view})
}

func (h *NoticeHandler) DeleteNotice(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id", "notice ID")
	if err != nil {
		return err
	}

	if err := h.notices.Delete(c.Request().Context(), userID, id); err != nil {
		return httpError(err, "Notice not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckAll marks every notice of the authenticated user as checked
func (h *NoticeHandler) CheckAll(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	if err := h.notices.CheckAll(c.Request().Context(), userID); err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "All notices checked"})
}

func (h *NoticeHandler) GetUnreadCount(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	count, err := h.notices.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// SetPostNotice turns the user's notices for a post on or off. Without a body
// the current setting is toggled.
func (h *NoticeHandler) SetPostNotice(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("post_id")

	var req models.PostNoticeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	on := false
	if req.On != nil {
		on = *req.On
		err = h.notices.SetPostNotice(ctx, postID, userID, on)
	} else {
		on, err = h.notices.TogglePostNotice(ctx, postID, userID)
	}
	if err != nil {
		return httpError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"post_id": postID, "on": on}})
}
