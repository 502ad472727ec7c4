package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/apperr"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/hub"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/middleware"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/models"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
	hub *hub.Hub
}

func NewChatHandler(svc *service.ChatService, h *hub.Hub) *ChatHandler {
	return &ChatHandler{svc: svc, hub: h}
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
}

type sendMessageRequest struct {
	ReceiverID  string             `json:"receiver_id"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"content_type"`
	MediaURL    string             `json:"media_url"`
}

// POST /api/v1/chat/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.ContentType == "" {
		req.ContentType = models.ContentText
	}
	msg, err := h.svc.SendMessage(c.Context(), middleware.CallerID(c), req.ReceiverID, req.Content, req.ContentType, req.MediaURL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GET /api/v1/chat/conversations
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	convs, err := h.svc.Conversations(c.Context(), middleware.CallerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(convs)
}

// GET /api/v1/chat/conversations/:id/messages
// Opening a conversation marks its unread messages as read.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	msgs, err := h.svc.OpenConversation(c.Context(), middleware.CallerID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// PUT /api/v1/chat/messages/read
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.svc.MarkRead(c.Context(), middleware.CallerID(c), req.MessageIDs); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

// POST /api/v1/chat/messages/:id/reactions
func (h *ChatHandler) React(c *fiber.Ctx) error {
	var req reactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	reactions, err := h.svc.React(c.Context(), c.Params("id"), middleware.CallerID(c), req.Emoji)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message_id": c.Params("id"), "reactions": reactions})
}

// DELETE /api/v1/chat/messages/:id
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	if err := h.svc.DeleteMessage(c.Context(), c.Params("id"), middleware.CallerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// GET /api/v1/chat/users/:id/status
func (h *ChatHandler) GetUserStatus(c *fiber.Ctx) error {
	online, lastSeen, err := h.hub.UserStatus(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	resp := fiber.Map{"user_id": c.Params("id"), "is_online": online}
	if !online && !lastSeen.IsZero() {
		resp["last_seen"] = lastSeen
	}
	return c.JSON(resp)
}
