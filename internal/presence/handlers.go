package presence

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, manager *Manager, tracker *Tracker, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		sessions, err := manager.Sessions(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sessions)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		session, err := manager.Session(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.JSON(session)
	})

	r.Post("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		session, err := tracker.EndSession(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.JSON(session)
	})
}
