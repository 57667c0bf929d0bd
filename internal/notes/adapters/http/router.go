// Package http содержит компоненты для HTTP сервера.
package http

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"

	"sheetnotes/internal/notes/adapters/http/middleware"
	"sheetnotes/internal/notes/adapters/http/notes"
	"sheetnotes/internal/notes/adapters/http/response"
	"sheetnotes/internal/notes/adapters/http/sources"
	"sheetnotes/internal/notes/adapters/http/syncing"
	"sheetnotes/internal/notes/ports/services"
)

// HealthCheck проверка зависимости для /health.
type HealthCheck func(ctx context.Context) error

// Deps зависимости маршрутизатора.
type Deps struct {
	Notes       notes.Service
	Sources     sources.Manager
	Provisioner sources.Provisioner
	Sync        syncing.Service
	// Tokens включает bearer аутентификацию /api/v1, если не nil.
	Tokens       services.TokenService
	CORSOrigins  []string
	HealthChecks map[string]HealthCheck
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, deps Deps) {
	notesHandler := notes.NewHandler(deps.Notes)
	sourcesHandler := sources.NewHandler(deps.Sources, deps.Provisioner)
	syncHandler := syncing.NewHandler(deps.Sync)

	// Middleware для всех запросов.
	app.Use(middleware.NewLoggerMiddleware())
	app.Use(middleware.NewRecoveryMiddleware())
	if len(deps.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{AllowOrigins: deps.CORSOrigins}))
	}

	app.Get("/health", healthHandler(deps.HealthChecks))

	// API версии 1.
	apiV1 := app.Group("/api/v1")
	if deps.Tokens != nil {
		apiV1.Use(middleware.NewAuthMiddleware(deps.Tokens))
	}

	sourceRoutes := apiV1.Group("/sources")
	sourceRoutes.Get("/", sourcesHandler.ListSources)
	sourceRoutes.Post("/", sourcesHandler.CreateSource)
	sourceRoutes.Get("/active", sourcesHandler.GetActive)
	sourceRoutes.Put("/active", sourcesHandler.SetActive)
	sourceRoutes.Patch("/:source_id", sourcesHandler.UpdateSource)
	sourceRoutes.Delete("/:source_id", sourcesHandler.DeleteSource)
	sourceRoutes.Post("/:source_id/setup", sourcesHandler.SetupSource)

	noteRoutes := sourceRoutes.Group("/:source_id/notes")
	noteRoutes.Get("/", notesHandler.ListNotes)
	noteRoutes.Post("/", notesHandler.CreateNote)
	noteRoutes.Get("/:note_id", notesHandler.GetNote)
	noteRoutes.Patch("/:note_id", notesHandler.UpdateNote)
	noteRoutes.Delete("/:note_id", notesHandler.DeleteNote)

	sourceRoutes.Get("/:source_id/tags", notesHandler.ListTags)
	sourceRoutes.Get("/:source_id/templates", notesHandler.ListTemplates)
	sourceRoutes.Get("/:source_id/export", notesHandler.Export)

	sourceRoutes.Post("/:source_id/sync", syncHandler.Sync)
	sourceRoutes.Post("/:source_id/sync/pull", syncHandler.Pull)
	sourceRoutes.Post("/:source_id/sync/flush", syncHandler.Flush)
	sourceRoutes.Post("/:source_id/sync/reset", syncHandler.Reset)

	syncRoutes := apiV1.Group("/sync")
	syncRoutes.Get("/pending", syncHandler.Pending)
	syncRoutes.Get("/notices", syncHandler.Notices)

	settingsRoutes := apiV1.Group("/settings")
	settingsRoutes.Get("/view-mode", sourcesHandler.GetViewMode)
	settingsRoutes.Put("/view-mode", sourcesHandler.SetViewMode)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}

func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c fiber.Ctx) error {
		ctx := middleware.RequestContext(c)
		status := fiber.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return response.JSON(c, status, fiber.Map{"status": state, "checks": results})
	}
}
