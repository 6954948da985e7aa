package handler

import (
	"time"

	"github.com/netly/netlychat/internal/app/chat"
	"github.com/netly/netlychat/internal/configs"
)

// AppDeps bundles the dependencies shared by the HTTP handlers.
type AppDeps struct {
	Hub       *chat.Hub
	Config    *configs.AppConfig
	StartedAt time.Time
}
