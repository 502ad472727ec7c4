package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"

	"github.com/Naveenchinthakindi/whatsapp-application/internal/handlers"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/metrics"
	"github.com/Naveenchinthakindi/whatsapp-application/internal/middleware"
)

func Register(app *fiber.App, chat *handlers.ChatHandler, ws *handlers.WSHandler, jwtSecret string, limiter *middleware.RateLimiter) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(ws.Handle))

	api := app.Group("/api/v1/chat", middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		api.Use(limiter.MiddlewareByKey(func(c *fiber.Ctx) string {
			return middleware.CallerID(c)
		}))
	}

	api.Post("/messages", chat.SendMessage)
	api.Put("/messages/read", chat.MarkRead)
	api.Post("/messages/:id/reactions", chat.React)
	api.Delete("/messages/:id", chat.DeleteMessage)
	api.Get("/conversations", chat.GetConversations)
	api.Get("/conversations/:id/messages", chat.GetMessages)
	api.Get("/users/:id/status", chat.GetUserStatus)
}
