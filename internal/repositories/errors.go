package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// wrap annotates driver errors while leaving not-found sentinels bare so
// callers can keep comparing against them.
func wrap(err error, msg string) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return errors.Wrap(err, msg)
}

// IsNotFound reports whether err means the row or document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrPostNotFound)
}

var (
	ErrFriendRequestExists = errors.New("a pending friend request already exists between these users")
	ErrAlreadyFriends      = errors.New("users are already friends")
	ErrSelfFriendRequest   = errors.New("cannot send a friend request to yourself")
	ErrPostNotFound        = errors.New("post not found")
)
