package main

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	applog "github.com/linkmap/linkmap/internal/logger"
	"github.com/linkmap/linkmap/internal/registry"
)

type createRequest struct {
	URL             string `json:"url"`
	ValidityMinutes int    `json:"validity_minutes"`
	CustomCode      string `json:"custom_code"`
}

// newApp builds the fiber application around a registry. Kept separate from
// transport wiring so tests can drive it with app.Test.
func newApp(reg *registry.Registry, appDomain string) *fiber.App {
	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/mappings", handleCreate(reg, appDomain))
	app.Get("/api/mappings", handleList(reg))
	app.Get("/api/mappings/:code/stats", handleStats(reg))
	app.Delete("/api/mappings/:id", handleDelete(reg))
	app.Delete("/api/mappings", handleClear(reg))

	// Catch-all redirect, registered last.
	app.Get("/:code", handleRedirect(reg))

	return app
}

func handleCreate(reg *registry.Registry, appDomain string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		m, err := reg.Create(c.Context(), registry.CreateRequest{
			OriginalURL:     req.URL,
			ValidityMinutes: req.ValidityMinutes,
			CustomCode:      req.CustomCode,
		})
		if err != nil {
			return writeRegistryError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"mapping":   m,
			"short_url": appDomain + "/" + m.ShortCode,
		})
	}
}

func handleRedirect(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		if code == "favicon.ico" {
			return c.SendStatus(fiber.StatusNotFound)
		}

		dest, err := reg.RecordAccessAndResolve(c.Context(), code, registry.Access{
			Source:     c.Query("source"),
			UserAgent:  c.Get("User-Agent"),
			RemoteAddr: c.IP(),
		})
		if err != nil {
			return writeRegistryError(c, err)
		}
		return c.Redirect(dest, fiber.StatusFound)
	}
}

func handleList(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"mappings": reg.ListAll(c.Context())})
	}
}

func handleStats(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := reg.Lookup(c.Context(), c.Params("code"))
		if err != nil {
			return writeRegistryError(c, err)
		}
		return c.JSON(m)
	}
}

func handleDelete(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		removed := reg.Delete(c.Context(), c.Params("id"))
		return c.JSON(fiber.Map{"deleted": removed})
	}
}

func handleClear(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg.Clear(c.Context())
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func writeRegistryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, registry.ErrInvalidURL):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "url"})
	case errors.Is(err, registry.ErrInvalidShortCode):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "custom_code"})
	case errors.Is(err, registry.ErrShortCodeTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "field": "custom_code"})
	case errors.Is(err, registry.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
