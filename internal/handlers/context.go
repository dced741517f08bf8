package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NoticeWriter is the aggregator surface action handlers report to.
type NoticeWriter interface {
	notice.Notifier
	PurgePost(ctx context.Context, postID string) error
	PurgeComment(ctx context.Context, commentID uint) error
}

// TagResolver turns mention changes into tag notices.
type TagResolver interface {
	Resolve(ctx context.Context, content string, explicit []uint) ([]uint, error)
	OnCreate(ctx context.Context, author uint, sets ...notice.TagSet) error
	Reconcile(ctx context.Context, author uint, before, after []notice.TagSet) error
}

// getUserIDFromContext returns the authenticated user set by the JWT
// middleware, or 0.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

func requireUser(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func parseUintParam(c echo.Context, name, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+what)
	}
	return uint(id), nil
}

// bindAndValidate binds the request body and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

// httpError turns repository and notice errors into echo errors. notFound
// replaces the message of 404 answers.
func httpError(err error, notFound string) error {
	code := notice.HTTPStatus(err)
	if repositories.IsNotFound(err) {
		code = http.StatusNotFound
	}
	if code == http.StatusNotFound && notFound != "" {
		return echo.NewHTTPError(code, notFound)
	}
	return echo.NewHTTPError(code, err.Error())
}
