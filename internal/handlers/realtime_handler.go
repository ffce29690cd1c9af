package handlers

import (
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/lexvia/ConsultAppBack/internal/realtime"
	"github.com/lexvia/ConsultAppBack/pkg/utils"
)

// RealtimeHandler terminates websocket upgrades and hands authenticated
// connections to the hub.
type RealtimeHandler struct {
	hub       *realtime.Hub
	chat      realtime.ChatProvider
	jwtSecret string
}

func NewRealtimeHandler(hub *realtime.Hub, chat realtime.ChatProvider, jwtSecret string) *RealtimeHandler {
	return &RealtimeHandler{
		hub:       hub,
		chat:      chat,
		jwtSecret: jwtSecret,
	}
}

// WebSocketAuth runs before the upgrade. Browsers cannot set headers on
// websocket requests, so a ?token= query parameter is accepted alongside
// the usual Authorization header.
func (h *RealtimeHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *RealtimeHandler) HandleWebSocket(conn *websocket.Conn) {
	rawID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		conn.Close()
		return
	}

	client := realtime.NewClient(h.hub, conn, userID, role)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.chat)
}

func (h *RealtimeHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
