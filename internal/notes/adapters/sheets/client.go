// Package sheets implements the remote row store over the spreadsheet proxy HTTP API.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/pkg/logger"
)

// Константы ошибок и сообщений клиента.
const (
	ErrEncodeRequest  = "failed to encode request"
	ErrBuildRequest   = "failed to build request"
	ErrSendRequest    = "failed to send request"
	ErrDecodeResponse = "failed to decode response"
	ErrHealthCheck    = "health check failed"

	LogRequestFailed = "sheets request failed"
)

const (
	defaultSheetName = "notes"
	defaultTimeout   = 15 * time.Second
	// maxErrorBody ограничивает тело ответа, сохраняемое в ошибке.
	maxErrorBody = 4 << 10
)

var (
	_ remote.Store      = (*Client)(nil)
	_ remote.SheetAdmin = (*Client)(nil)
)

// Client HTTP клиент прокси таблиц.
type Client struct {
	baseURL   string
	sheetName string
	http      *http.Client
}

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиента.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSheetName задает имя листа заметок.
func WithSheetName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.sheetName = name
		}
	}
}

// WithTimeout задает таймаут запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient создает клиента для baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sheetName: defaultSheetName,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SheetName возвращает имя листа заметок.
func (c *Client) SheetName() string {
	return c.sheetName
}

type rowDTO struct {
	ID        string `json:"id"`
	SourceID  string `json:"sourceId,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Tags      string `json:"tags"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	DeletedAt string `json:"deletedAt,omitempty"`
}

func toRow(n *entities.Note) rowDTO {
	row := rowDTO{
		ID:        n.ID,
		SourceID:  n.SourceID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      n.Tags,
		CreatedAt: formatTime(n.CreatedAt),
		UpdatedAt: formatTime(n.UpdatedAt),
	}
	if n.DeletedAt != nil {
		row.DeletedAt = formatTime(*n.DeletedAt)
	}
	return row
}

func (r rowDTO) toNote() *entities.Note {
	n := &entities.Note{
		ID:        strings.TrimSpace(r.ID),
		SourceID:  r.SourceID,
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
	if r.DeletedAt != "" {
		d := parseTime(r.DeletedAt)
		n.DeletedAt = &d
	}
	return n
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime считает нечитаемое значение ячейки нулевым временем.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (c *Client) rowsPath(spreadsheetID string) string {
	return fmt.Sprintf("/spreadsheets/%s/sheets/%s/rows", url.PathEscape(spreadsheetID), url.PathEscape(c.sheetName))
}

// CreateRow добавляет строку и возвращает ее номер.
func (c *Client) CreateRow(ctx context.Context, spreadsheetID string, note *entities.Note) (int, error) {
	var resp struct {
		RowIndex int `json:"rowIndex"`
	}
	if err := c.do(ctx, http.MethodPost, c.rowsPath(spreadsheetID), toRow(note), &resp); err != nil {
		return 0, err
	}
	return resp.RowIndex, nil
}

// UpdateRow перезаписывает строку rowIndex.
func (c *Client) UpdateRow(ctx context.Context, spreadsheetID string, rowIndex int, note *entities.Note) error {
	return c.do(ctx, http.MethodPut, c.rowsPath(spreadsheetID)+"/"+strconv.Itoa(rowIndex), toRow(note), nil)
}

// DeleteRow удаляет строку rowIndex.
func (c *Client) DeleteRow(ctx context.Context, spreadsheetID string, rowIndex int) error {
	return c.do(ctx, http.MethodDelete, c.rowsPath(spreadsheetID)+"/"+strconv.Itoa(rowIndex), nil, nil)
}

// ListRows возвращает строки данных в порядке таблицы.
func (c *Client) ListRows(ctx context.Context, spreadsheetID string) ([]*entities.Note, error) {
	var resp struct {
		Rows []rowDTO `json:"rows"`
	}
	if err := c.do(ctx, http.MethodGet, c.rowsPath(spreadsheetID), nil, &resp); err != nil {
		return nil, err
	}
	notes := make([]*entities.Note, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		notes = append(notes, r.toNote())
	}
	return notes, nil
}

// HealthCheck проверяет доступность прокси. Любой сбой означает недоступность.
func (c *Client) HealthCheck(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w: %w", ErrHealthCheck, remote.ErrUnreachable, err)
	}
	return err
}

// ListSheets возвращает имена листов таблицы.
func (c *Client) ListSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	var resp struct {
		Sheets []string `json:"sheets"`
	}
	path := fmt.Sprintf("/spreadsheets/%s/sheets", url.PathEscape(spreadsheetID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sheets, nil
}

// CreateSheet создает лист с заголовком columns.
func (c *Client) CreateSheet(ctx context.Context, spreadsheetID, name string, columns []string) error {
	body := struct {
		Name    string   `json:"name"`
		Columns []string `json:"columns"`
	}{Name: name, Columns: columns}
	path := fmt.Sprintf("/spreadsheets/%s/sheets", url.PathEscape(spreadsheetID))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	log := logger.Log(ctx).With(
		zap.String("method", "sheets.Client.do"),
		zap.String("http_method", method),
		zap.String("path", path),
	)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", ErrEncodeRequest, remote.ErrRemote, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", ErrBuildRequest, remote.ErrRemote, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", ErrSendRequest, ctx.Err())
		}
		log.Warn(ctx, LogRequestFailed, zap.Error(err))
		return fmt.Errorf("%s: %w: %w", ErrSendRequest, remote.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newStatusError(resp.StatusCode, strings.TrimSpace(string(data)))
		log.Warn(ctx, LogRequestFailed, zap.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %w", ErrDecodeResponse, remote.ErrRemote, err)
	}
	return nil
}
