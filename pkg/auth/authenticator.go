package auth

import (
	"log/slog"

	"github.com/samber/lo"
)

// authenticator allows only an explicit list of telegram user IDs. An
// empty list means the bot is open to everyone.
type authenticator struct {
	authorizedUserIDs []int64
}

func NewAuthenticator(authorizedUserIDs []int64) *authenticator {
	slog.Info("telegram authorized user IDs", "user_ids", authorizedUserIDs)

	return &authenticator{
		authorizedUserIDs: authorizedUserIDs,
	}
}

func (a *authenticator) IsAuthorized(userID int64) bool {
	if len(a.authorizedUserIDs) == 0 {
		return true
	}
	return lo.Contains(a.authorizedUserIDs, userID)
}
