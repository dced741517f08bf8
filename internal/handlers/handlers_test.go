package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// recordingNotices captures every aggregator call.
type recordingNotices struct {
	created      []notice.Action
	cancelled    []notice.Action
	purgedPosts  []string
	purgedThread []uint
}

func (r *recordingNotices) Create(ctx context.Context, act notice.Action) (*models.Notice, error) {
	r.created = append(r.created, act)
	return &models.Notice{ReceiverID: act.ReceiverID, Kind: act.Kind}, nil
}

func (r *recordingNotices) Cancel(ctx context.Context, act notice.Action) (bool, error) {
	r.cancelled = append(r.cancelled, act)
	return true, nil
}

func (r *recordingNotices) PurgePost(ctx context.Context, postID string) error {
	r.purgedPosts = append(r.purgedPosts, postID)
	return nil
}

func (r *recordingNotices) PurgeComment(ctx context.Context, commentID uint) error {
	r.purgedThread = append(r.purgedThread, commentID)
	return nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	return e
}

func serve(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	require.NotNil(t, e)
	e.ServeHTTP(rec, req)
	return rec
}

// withUser mimics the JWT middleware.
func withUser(userID uint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != 0 {
				c.Set("user", &models.JwtCustomClaims{UserID: userID})
			}
			return next(c)
		}
	}
}
