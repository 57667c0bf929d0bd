// Package sources содержит HTTP-обработчики источников заметок и настроек.
package sources

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"sheetnotes/internal/notes/adapters/http/dto"
	"sheetnotes/internal/notes/adapters/http/middleware"
	"sheetnotes/internal/notes/adapters/http/response"
	appsources "sheetnotes/internal/notes/app/sources"
	"sheetnotes/internal/notes/domain/entities"
)

// ErrMsgInvalidRequestBody ошибка разбора тела запроса.
const ErrMsgInvalidRequestBody = "invalid request body"

// Manager операции над списком источников.
type Manager interface {
	List(ctx context.Context) ([]entities.NoteSource, error)
	Active(ctx context.Context) (*entities.NoteSource, error)
	Get(ctx context.Context, id string) (*entities.NoteSource, error)
	Add(ctx context.Context, name, spreadsheetID string) (*entities.NoteSource, error)
	Update(ctx context.Context, id, name, spreadsheetID string) (*entities.NoteSource, error)
	Remove(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string) (*entities.NoteSource, error)
	ViewMode(ctx context.Context) (entities.ViewMode, error)
	SetViewMode(ctx context.Context, mode entities.ViewMode) error
}

// Provisioner готовит таблицу источника.
type Provisioner interface {
	Setup(ctx context.Context, source entities.NoteSource) (appsources.SetupResult, error)
}

// Handler обработчик HTTP-запросов источников.
type Handler struct {
	manager     Manager
	provisioner Provisioner
}

// NewHandler создает новый экземпляр обработчика источников.
func NewHandler(manager Manager, provisioner Provisioner) *Handler {
	return &Handler{manager: manager, provisioner: provisioner}
}

// ListSources возвращает источники и активный источник.
func (h *Handler) ListSources(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	list, err := h.manager.List(ctx)
	if err != nil {
		return response.Error(c, err)
	}
	active, err := h.manager.Active(ctx)
	if err != nil {
		return response.Error(c, err)
	}
	resp := dto.ListSourcesResponse{Sources: list}
	if active != nil {
		resp.ActiveID = active.ID
	}
	return response.JSON(c, fiber.StatusOK, resp)
}

// CreateSource добавляет источник.
func (h *Handler) CreateSource(c fiber.Ctx) error {
	var req dto.SourceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}
	source, err := h.manager.Add(middleware.RequestContext(c), req.Name, req.SpreadsheetID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusCreated, source)
}

// UpdateSource меняет имя и таблицу источника.
func (h *Handler) UpdateSource(c fiber.Ctx) error {
	var req dto.SourceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}
	source, err := h.manager.Update(middleware.RequestContext(c), c.Params("source_id"), req.Name, req.SpreadsheetID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, source)
}

// DeleteSource удаляет источник.
func (h *Handler) DeleteSource(c fiber.Ctx) error {
	if err := h.manager.Remove(middleware.RequestContext(c), c.Params("source_id")); err != nil {
		return response.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetActive возвращает активный источник или 404, если источников нет.
func (h *Handler) GetActive(c fiber.Ctx) error {
	active, err := h.manager.Active(middleware.RequestContext(c))
	if err != nil {
		return response.Error(c, err)
	}
	if active == nil {
		return response.Error(c, appsources.ErrSourceNotFound)
	}
	return response.JSON(c, fiber.StatusOK, active)
}

// SetActive выбирает активный источник.
func (h *Handler) SetActive(c fiber.Ctx) error {
	var req dto.ActiveSourceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}
	source, err := h.manager.SetActive(middleware.RequestContext(c), req.ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, source)
}

// SetupSource проверяет доступ к таблице и создает лист заметок.
func (h *Handler) SetupSource(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	source, err := h.manager.Get(ctx, c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	result, err := h.provisioner.Setup(ctx, *source)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, result)
}

// GetViewMode возвращает режим отображения.
func (h *Handler) GetViewMode(c fiber.Ctx) error {
	mode, err := h.manager.ViewMode(middleware.RequestContext(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, dto.ViewModeRequest{Mode: mode})
}

// SetViewMode сохраняет режим отображения.
func (h *Handler) SetViewMode(c fiber.Ctx) error {
	var req dto.ViewModeRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}
	if err := h.manager.SetViewMode(middleware.RequestContext(c), req.Mode); err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, req)
}
