package friends

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Friendship
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.FriendID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and friend_id required")
		}
		if err := svc.AddFriend(c.Context(), req.UserID, req.FriendID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Friendship
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.FriendID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and friend_id required")
		}
		if err := svc.RemoveFriend(c.Context(), req.UserID, req.FriendID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		links, err := svc.Friends(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(links)
	})

	r.Get("/locations", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		snapshot, err := svc.Snapshot(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(snapshot)
	})
}
