/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file contains the WebSocket upgrade handler: rate limiting, connection
upgrade, and the client lifecycle kickoff. Authentication happens after the
upgrade, through socket events, so the handler itself is anonymous.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/netly/netlychat/internal/app/chat"
	"github.com/netly/netlychat/internal/pkg/errs"
	"github.com/netly/netlychat/internal/pkg/limiter"
	"github.com/netly/netlychat/internal/pkg/logx"
	"github.com/netly/netlychat/internal/pkg/randx"
	"github.com/netly/netlychat/internal/pkg/resp"
)

// HandleWebSocket creates an http.HandlerFunc that upgrades the request to a
// WebSocket connection and starts the client's read and write pumps.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := chat.NewClient(deps.Hub, conn, connID)

		deps.Hub.RegisterClient(client)

		logx.Info("WebSocket connection established", "conn_id", connID)

		go client.WritePump()

		client.ReadPump()
	}
}
