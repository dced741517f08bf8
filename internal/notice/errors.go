package notice

import (
	"net/http"

	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrInvalidAction  = errors.New("invalid notice action")
	ErrNoticeNotFound = errors.New("notice not found")
	ErrNoticeConflict = errors.New("notice was changed by a concurrent request")
)

// ErrorMap maps notice errors to the HTTP status handlers answer with.
var ErrorMap = map[error]int{
	ErrInvalidAction:  http.StatusBadRequest,
	ErrNoticeNotFound: http.StatusNotFound,
	ErrNoticeConflict: http.StatusConflict,

	repositories.ErrPostNotFound: http.StatusNotFound,
	gorm.ErrRecordNotFound:       http.StatusNotFound,
}

// HTTPStatus resolves err, possibly wrapped, through ErrorMap.
func HTTPStatus(err error) int {
	for sentinel, code := range ErrorMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}
