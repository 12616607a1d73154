package handler

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/apimgr/weatherio/src/server/service"
)

// WSHandler upgrades /ws requests into display sessions
type WSHandler struct {
	sessions *service.SessionManager
	upgrader websocket.Upgrader
}

// NewWSHandler creates the websocket handler. Same-origin pages are always
// accepted; origins lists additional allowed origins.
func NewWSHandler(sessions *service.SessionManager, origins []string) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}

	return &WSHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Serve handles GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered with an HTTP error
		return
	}
	h.sessions.Serve(conn, net.ParseIP(c.ClientIP()))
}
