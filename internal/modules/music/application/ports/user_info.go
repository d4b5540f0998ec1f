package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo is how a requester is shown in queue notices.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider resolves requesters to guild display information.
type UserInfoProvider interface {
	GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}
