// Package notes содержит HTTP-обработчики для работы с заметками источника.
package notes

import (
	"bytes"
	"context"
	"io"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/adapters/http/dto"
	"sheetnotes/internal/notes/adapters/http/middleware"
	"sheetnotes/internal/notes/adapters/http/response"
	"sheetnotes/internal/notes/app"
	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/pkg/logger"
)

// Константы ошибок и сообщений для логирования.
const (
	LogHandlerCreateNote = "handling create note request"
	LogHandlerUpdateNote = "handling update note request"
	LogHandlerDeleteNote = "handling delete note request"
	LogHandlerExport     = "handling export request"

	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgInvalidSort        = "sort must be newest or oldest"
)

// Service операции над заметками, нужные обработчику.
type Service interface {
	List(ctx context.Context, sourceID string, opts entities.ListOptions) ([]*entities.Note, error)
	Get(ctx context.Context, sourceID, noteID string) (*entities.Note, error)
	Create(ctx context.Context, sourceID string, in app.NoteInput) (*syncer.Receipt, error)
	Update(ctx context.Context, sourceID, noteID string, in app.NoteInput) (*syncer.Receipt, error)
	Delete(ctx context.Context, sourceID, noteID string) (*syncer.Receipt, error)
	Tags(ctx context.Context, sourceID string) ([]string, error)
	Templates(ctx context.Context, sourceID string) ([]entities.Template, error)
	ExportCSV(ctx context.Context, sourceID string, w io.Writer) (string, error)
}

// Handler обработчик HTTP-запросов для работы с заметками.
type Handler struct {
	service Service
}

// NewHandler создает новый экземпляр обработчика заметок.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListNotes возвращает заметки источника с фильтрами search, tags и sort.
func (h *Handler) ListNotes(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)

	opts := entities.ListOptions{
		Search: c.Query("search"),
		Tags:   entities.SplitTags(c.Query("tags")),
		Sort:   entities.SortOrder(c.Query("sort", string(entities.SortNewest))),
	}
	if opts.Sort != entities.SortNewest && opts.Sort != entities.SortOldest {
		return response.BadRequest(c, ErrMsgInvalidSort)
	}

	notes, err := h.service.List(ctx, c.Params("source_id"), opts)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, dto.ListNotesResponse{Notes: notes, Total: len(notes)})
}

// GetNote возвращает заметку по ID.
func (h *Handler) GetNote(c fiber.Ctx) error {
	note, err := h.service.Get(middleware.RequestContext(c), c.Params("source_id"), c.Params("note_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, dto.NoteResponse{Note: note, Synced: true})
}

// CreateNote создает заметку. С ?wait=true ответ приходит после записи в таблицу.
func (h *Handler) CreateNote(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerCreateNote, zap.String("handler", "Handler.CreateNote"))

	var req dto.NoteRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}

	receipt, err := h.service.Create(ctx, c.Params("source_id"), toInput(req))
	if err != nil {
		return response.Error(c, err)
	}
	return h.respond(c, receipt, fiber.StatusCreated)
}

// UpdateNote меняет переданные поля заметки.
func (h *Handler) UpdateNote(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerUpdateNote, zap.String("handler", "Handler.UpdateNote"))

	var req dto.NoteRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.BadRequest(c, ErrMsgInvalidRequestBody)
	}

	receipt, err := h.service.Update(ctx, c.Params("source_id"), c.Params("note_id"), toInput(req))
	if err != nil {
		return response.Error(c, err)
	}
	return h.respond(c, receipt, fiber.StatusOK)
}

// DeleteNote мягко удаляет заметку.
func (h *Handler) DeleteNote(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerDeleteNote, zap.String("handler", "Handler.DeleteNote"))

	receipt, err := h.service.Delete(ctx, c.Params("source_id"), c.Params("note_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return h.respond(c, receipt, fiber.StatusOK)
}

// ListTags возвращает теги источника.
func (h *Handler) ListTags(c fiber.Ctx) error {
	tags, err := h.service.Tags(middleware.RequestContext(c), c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, fiber.Map{"tags": tags})
}

// ListTemplates возвращает шаблоны источника.
func (h *Handler) ListTemplates(c fiber.Ctx) error {
	templates, err := h.service.Templates(middleware.RequestContext(c), c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, fiber.Map{"templates": templates})
}

// Export отдает заметки источника CSV файлом.
func (h *Handler) Export(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	logger.Log(ctx).Debug(ctx, LogHandlerExport, zap.String("handler", "Handler.Export"))

	var buf bytes.Buffer
	name, err := h.service.ExportCSV(ctx, c.Params("source_id"), &buf)
	if err != nil {
		return response.Error(c, err)
	}
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// respond отвечает сразу (202, synced=false) или после доставки при ?wait=true.
func (h *Handler) respond(c fiber.Ctx, receipt *syncer.Receipt, status int) error {
	if c.Query("wait") != "true" {
		return response.JSON(c, fiber.StatusAccepted, dto.NoteResponse{Note: receipt.Note()})
	}
	if err := receipt.Wait(middleware.RequestContext(c)); err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, status, dto.NoteResponse{Note: receipt.Note(), Synced: true})
}

func toInput(req dto.NoteRequest) app.NoteInput {
	return app.NoteInput{Title: req.Title, Content: req.Content, Tags: req.Tags}
}
