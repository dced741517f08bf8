package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// FriendshipHandler handles HTTP requests related to friendships
type FriendshipHandler struct {
	friendshipRepository repositories.FriendshipRepository
	userRepository       repositories.UserRepository
	notices              NoticeWriter
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendshipRepo repositories.FriendshipRepository, userRepo repositories.UserRepository, notices NoticeWriter) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipRepository: friendshipRepo,
		userRepository:       userRepo,
		notices:              notices,
	}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/request", h.SendFriendRequest)
	g.GET("/friends/requests/pending", h.GetPendingFriendRequests)
	g.PUT("/friends/request/:id/status", h.UpdateFriendRequestStatus)
	g.DELETE("/friends/request/:id", h.CancelFriendRequest)
	g.GET("/friends", h.GetFriends)
	g.DELETE("/friends/:id", h.DeleteFriend) // Unfriend
}

// SendFriendRequest handles sending a friend request
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var req models.CreateFriendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.userRepository.GetUserByID(ctx, req.ReceiverID); err != nil {
		return httpError(err, "Receiver user not found")
	}

	friendRequest := &models.FriendRequest{SenderID: userID, ReceiverID: req.ReceiverID}
	if err := h.friendshipRepository.SendFriendRequest(ctx, friendRequest); err != nil {
		switch {
		case errors.Is(err, repositories.ErrSelfFriendRequest):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, repositories.ErrFriendRequestExists), errors.Is(err, repositories.ErrAlreadyFriends):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	act := notice.Action{Kind: models.KindFriendRequest, SenderID: userID, ReceiverID: req.ReceiverID}
	if _, err := h.notices.Create(ctx, act); err != nil {
		return httpError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": friendRequest})
}

// GetPendingFriendRequests retrieves pending friend requests for the authenticated user
func (h *FriendshipHandler) GetPendingFriendRequests(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	requests, err := h.friendshipRepository.GetUserPendingFriendRequests(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": requests})
}

// UpdateFriendRequestStatus accepts or rejects a friend request sent to the
// authenticated user
func (h *FriendshipHandler) UpdateFriendRequestStatus(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	requestID, err := parseUintParam(c, "id", "request ID")
	if err != nil {
		return err
	}

	var req models.UpdateFriendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	friendRequest, err := h.friendshipRepository.GetFriendRequestByID(ctx, requestID)
	if err != nil {
		return httpError(err, "Friend request not found")
	}
	if friendRequest.ReceiverID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this friend request")
	}
	if friendRequest.Status != models.FriendRequestPending {
		return echo.NewHTTPError(http.StatusBadRequest, "Friend request is no longer pending")
	}

	if req.Status == models.FriendRequestAccepted {
		if err := h.friendshipRepository.AcceptFriendRequest(ctx, requestID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		act := notice.Action{Kind: models.KindFriendAccept, SenderID: userID, ReceiverID: friendRequest.SenderID}
		if _, err := h.notices.Create(ctx, act); err != nil {
			return httpError(err, "")
		}
		friendRequest.Status = models.FriendRequestAccepted
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": friendRequest})
	}

	if err := h.friendshipRepository.DeleteFriendRequest(ctx, requestID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	act := notice.Action{Kind: models.KindFriendRequest, SenderID: friendRequest.SenderID, ReceiverID: userID}
	if _, err := h.notices.Cancel(ctx, act); err != nil {
		return httpError(err, "")
	}
	friendRequest.Status = req.Status
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": friendRequest})
}

// CancelFriendRequest withdraws a pending request the authenticated user sent
func (h *FriendshipHandler) CancelFriendRequest(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	requestID, err := parseUintParam(c, "id", "request ID")
	if err != nil {
		return err
	}

	friendRequest, err := h.friendshipRepository.GetFriendRequestByID(ctx, requestID)
	if err != nil {
		return httpError(err, "Friend request not found")
	}
	if friendRequest.SenderID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to cancel this friend request")
	}
	if friendRequest.Status != models.FriendRequestPending {
		return echo.NewHTTPError(http.StatusBadRequest, "Friend request is no longer pending")
	}

	if err := h.friendshipRepository.DeleteFriendRequest(ctx, requestID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	act := notice.Action{Kind: models.KindFriendRequest, SenderID: userID, ReceiverID: friendRequest.ReceiverID}
	if _, err := h.notices.Cancel(ctx, act); err != nil {
		return httpError(err, "")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetFriends retrieves the list of friends for the authenticated user
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	ids, err := h.friendshipRepository.GetUserFriendIDs(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	users, err := h.userRepository.GetUsersByIDs(ctx, ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	friends := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			friends = append(friends, u.ToCompact())
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": friends})
}

// DeleteFriend handles unfriending (deleting an accepted friend request)
func (h *FriendshipHandler) DeleteFriend(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	friendID, err := parseUintParam(c, "id", "friend user ID")
	if err != nil {
		return err
	}

	friendRequest, err := h.friendshipRepository.GetFriendRequestBetween(ctx, userID, friendID)
	if err != nil {
		return httpError(err, "Friendship not found")
	}
	if friendRequest.Status != models.FriendRequestAccepted {
		return echo.NewHTTPError(http.StatusBadRequest, "Users are not friends")
	}

	if err := h.friendshipRepository.DeleteFriendRequest(ctx, friendRequest.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}
