package stats

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthResponse struct {
	Status     string `json:"status"`
	ObservedAt string `json:"observedAt"`
}

func Init(c *fiber.App) {
	c.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{
			Status:     "pass",
			ObservedAt: time.Now().UTC().Format(time.RFC3339),
		})
	})
}
