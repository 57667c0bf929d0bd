package app

import (
	"errors"

	"sheetnotes/internal/notes/app/sources"
	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/internal/notes/ports/repositories"
)

// Ошибки уровня бизнес-логики.
var (
	ErrNotFound      = errors.New("note not found")
	ErrInvalidParams = errors.New("invalid parameters")
)

// Kind класс ошибки, показываемой пользователю.
type Kind string

// Классы ошибок.
const (
	KindUnreachable  Kind = "unreachable"
	KindPermission   Kind = "permission"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindPending      Kind = "pending"
	KindLocalStorage Kind = "local_storage"
	KindValidation   Kind = "validation"
	KindUnknown      Kind = "unknown"
)

// Сообщения пользователю.
const (
	MsgPermission   = "Permission denied. Check that the spreadsheet is shared with the service account."
	MsgNotFound     = "Note or sheet not found in remote source."
	MsgServer       = "Remote server error. Please try syncing again."
	MsgPending      = "Some changes are not synced yet. Please try again when the connection is restored."
	MsgLocalStorage = "Local storage failure."
	MsgUnknown      = "Unexpected error."
)

// Classified ошибка, приведенная к классу и тексту для пользователя.
type Classified struct {
	Kind    Kind
	Message string
}

// Classify определяет класс ошибки по обернутым в нее sentinel-ошибкам.
func Classify(err error) Classified {
	switch {
	case err == nil:
		return Classified{}
	case errors.Is(err, remote.ErrUnreachable):
		return Classified{Kind: KindUnreachable, Message: syncer.MsgAPIUnreachable}
	case errors.Is(err, remote.ErrPermissionDenied):
		return Classified{Kind: KindPermission, Message: MsgPermission}
	case errors.Is(err, remote.ErrServer):
		return Classified{Kind: KindServer, Message: MsgServer}
	case errors.Is(err, remote.ErrNotFound):
		return Classified{Kind: KindNotFound, Message: MsgNotFound}
	case errors.Is(err, syncer.ErrPendingNotFlushed):
		return Classified{Kind: KindPending, Message: MsgPending}
	case errors.Is(err, repositories.ErrLocalStorage):
		return Classified{Kind: KindLocalStorage, Message: MsgLocalStorage}
	case errors.Is(err, ErrInvalidParams),
		errors.Is(err, sources.ErrInvalidSource),
		errors.Is(err, sources.ErrInvalidViewMode),
		errors.Is(err, syncer.ErrInvalidSource):
		return Classified{Kind: KindValidation, Message: err.Error()}
	case errors.Is(err, ErrNotFound), errors.Is(err, syncer.ErrNoteNotFound):
		return Classified{Kind: KindNotFound, Message: ErrNotFound.Error()}
	case errors.Is(err, sources.ErrSourceNotFound):
		return Classified{Kind: KindNotFound, Message: sources.ErrSourceNotFound.Error()}
	default:
		return Classified{Kind: KindUnknown, Message: MsgUnknown}
	}
}
