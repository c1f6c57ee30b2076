package sessions

import (
	"errors"

	"github.com/codepair/codepair/lib/db"
	"github.com/codepair/codepair/lib/exception"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CreateSessionRequest struct {
	Owner string `json:"owner" validate:"omitempty,max=128"`
}

// Init registers the session REST surface. A client joining a collaborative
// session fetches the current state here, out of band of the websocket.
func Init(c *fiber.App, store db.DataStore, validate *validator.Validate, logger *zap.SugaredLogger) {
	c.Post("/api/sessions", func(c *fiber.Ctx) error {
		var request CreateSessionRequest
		if err := c.BodyParser(&request); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}

		if err := validate.Struct(request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		var owner *string
		if request.Owner != "" {
			owner = &request.Owner
		}

		created, err := store.CreateSession(owner)
		if err != nil {
			logger.Error("error creating session", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusCreated).JSON(created)
	})

	c.Get("/api/sessions/:sessionId", func(c *fiber.Ctx) error {
		retrieved, err := store.GetSession(c.Params("sessionId"))
		if err != nil {
			var notFound *exception.SessionNotFoundError
			if errors.As(err, &notFound) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			logger.Error("error retrieving session", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.JSON(retrieved)
	})
}
