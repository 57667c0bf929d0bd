package sources

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/pkg/logger"
)

// DefaultSheetName лист, в котором хранятся заметки.
const DefaultSheetName = "notes"

// Константы сообщений подготовки таблицы.
const (
	LogSheetExists      = "notes sheet already exists"
	LogSheetCreated     = "notes sheet created"
	ErrSetupHealth      = "remote store is not reachable"
	ErrSetupListSheets  = "failed to list sheets"
	ErrSetupCreateSheet = "failed to create notes sheet"
	ErrSetupHeader      = "failed to materialize header row"
)

// SetupResult итог подготовки таблицы источника.
type SetupResult struct {
	Sheet        string `json:"sheet"`
	SheetCreated bool   `json:"sheetCreated"`
}

// Provisioner готовит таблицу источника к хранению заметок.
type Provisioner struct {
	remote    remote.Store
	admin     remote.SheetAdmin
	sheetName string
}

// NewProvisioner создает Provisioner; пустое имя листа означает DefaultSheetName.
func NewProvisioner(store remote.Store, admin remote.SheetAdmin, sheetName string) *Provisioner {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Provisioner{remote: store, admin: admin, sheetName: sheetName}
}

// Setup проверяет связь и создает лист заметок с заголовком, если его нет.
func (p *Provisioner) Setup(ctx context.Context, source entities.NoteSource) (SetupResult, error) {
	log := logger.Log(ctx).With(zap.String("method", "Provisioner.Setup"), zap.String("source_id", source.ID))
	result := SetupResult{Sheet: p.sheetName}

	if source.SpreadsheetID == "" {
		return result, ErrInvalidSource
	}
	if err := p.remote.HealthCheck(ctx); err != nil {
		return result, fmt.Errorf("%s: %w", ErrSetupHealth, err)
	}

	sheets, err := p.admin.ListSheets(ctx, source.SpreadsheetID)
	if err != nil {
		return result, fmt.Errorf("%s: %w", ErrSetupListSheets, err)
	}
	if slices.Contains(sheets, p.sheetName) {
		log.Debug(ctx, LogSheetExists)
		return result, nil
	}

	if err := p.admin.CreateSheet(ctx, source.SpreadsheetID, p.sheetName, remote.NoteColumns); err != nil {
		return result, fmt.Errorf("%s: %w", ErrSetupCreateSheet, err)
	}
	result.SheetCreated = true

	// Заголовок появляется в новом листе только после первой записи.
	row, err := p.remote.CreateRow(ctx, source.SpreadsheetID, &entities.Note{})
	if err != nil {
		return result, fmt.Errorf("%s: %w", ErrSetupHeader, err)
	}
	if err := p.remote.DeleteRow(ctx, source.SpreadsheetID, row); err != nil {
		return result, fmt.Errorf("%s: %w", ErrSetupHeader, err)
	}

	log.Info(ctx, LogSheetCreated, zap.String("sheet", p.sheetName))
	return result, nil
}
