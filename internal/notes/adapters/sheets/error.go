package sheets

import (
	"fmt"
	"net/http"

	"sheetnotes/internal/notes/ports/remote"
)

// Error ответ прокси со статусом вне 2xx.
type Error struct {
	Status   int
	Response string
	kind     error
}

// Error реализует error.
func (e *Error) Error() string {
	if e.Response == "" {
		return fmt.Sprintf("sheets: HTTP %d: %v", e.Status, e.kind)
	}
	return fmt.Sprintf("sheets: HTTP %d: %v: %s", e.Status, e.kind, e.Response)
}

// Unwrap возвращает класс сбоя из порта remote.
func (e *Error) Unwrap() error {
	return e.kind
}

func newStatusError(status int, body string) *Error {
	return &Error{Status: status, Response: body, kind: classifyStatus(status)}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return remote.ErrPermissionDenied
	case status == http.StatusNotFound:
		return remote.ErrNotFound
	case status >= http.StatusInternalServerError:
		return remote.ErrServer
	default:
		return remote.ErrRemote
	}
}
