// Package syncing содержит HTTP-обработчики синхронизации с таблицей.
package syncing

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/adapters/http/dto"
	"sheetnotes/internal/notes/adapters/http/middleware"
	"sheetnotes/internal/notes/adapters/http/response"
	"sheetnotes/internal/notes/app"
	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/pkg/logger"
)

// LogHandlerReset сообщение лога сброса кэша.
const LogHandlerReset = "handling cache reset request"

// Service операции синхронизации.
type Service interface {
	Sync(ctx context.Context, sourceID string) (syncer.SyncResult, error)
	Pull(ctx context.Context, sourceID string) (syncer.PullResult, error)
	Flush(ctx context.Context, sourceID string) (syncer.FlushResult, error)
	Reset(ctx context.Context, sourceID string) ([]string, error)
	PendingCount(ctx context.Context) (int, error)
	Notices() []syncer.Notice
}

// Handler обработчик HTTP-запросов синхронизации.
type Handler struct {
	service Service
}

// NewHandler создает новый экземпляр обработчика синхронизации.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Sync доставляет очередь и подтягивает таблицу.
func (h *Handler) Sync(c fiber.Ctx) error {
	result, err := h.service.Sync(middleware.RequestContext(c), c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, result)
}

// Pull подтягивает таблицу.
func (h *Handler) Pull(c fiber.Ctx) error {
	result, err := h.service.Pull(middleware.RequestContext(c), c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, result)
}

// Flush доставляет неподтвержденные изменения.
func (h *Handler) Flush(c fiber.Ctx) error {
	result, err := h.service.Flush(middleware.RequestContext(c), c.Params("source_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, result)
}

// Reset перезаливает кэш источника. Ответ содержит пройденные шаги и при сбое сообщение об ошибке.
func (h *Handler) Reset(c fiber.Ctx) error {
	ctx := middleware.RequestContext(c)
	logger.Log(ctx).Info(ctx, LogHandlerReset,
		zap.String("handler", "Handler.Reset"), zap.String("source_id", c.Params("source_id")))

	steps, err := h.service.Reset(ctx, c.Params("source_id"))
	if err != nil {
		classified := app.Classify(err)
		logger.Log(ctx).Warn(ctx, response.LogRequestError, zap.Error(err))
		return response.JSON(c, response.Status(classified.Kind), dto.ResetResponse{Steps: steps, Error: classified.Message})
	}
	return response.JSON(c, fiber.StatusOK, dto.ResetResponse{Steps: steps})
}

// Pending возвращает число неподтвержденных изменений.
func (h *Handler) Pending(c fiber.Ctx) error {
	count, err := h.service.PendingCount(middleware.RequestContext(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, fiber.StatusOK, dto.PendingResponse{Pending: count})
}

// Notices возвращает последние уведомления об отмененных изменениях.
func (h *Handler) Notices(c fiber.Ctx) error {
	notices := h.service.Notices()
	out := make([]dto.Notice, 0, len(notices))
	for _, n := range notices {
		out = append(out, dto.Notice{
			Kind:      string(n.Kind),
			SourceID:  n.SourceID,
			NoteID:    n.NoteID,
			Operation: string(n.Operation),
			Message:   app.Classify(n.Err).Message,
			At:        n.At,
		})
	}
	return response.JSON(c, fiber.StatusOK, fiber.Map{"notices": out})
}
