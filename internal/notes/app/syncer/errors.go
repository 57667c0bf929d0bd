package syncer

import "errors"

// Ошибки движка синхронизации.
var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrPendingNotFlushed = errors.New("pending changes could not be flushed")
	ErrEngineClosed      = errors.New("sync engine is closed")
	ErrInvalidSource     = errors.New("source has no spreadsheet id")
)

// MsgAPIUnreachable сообщение пользователю, когда прокси таблиц недоступен.
const MsgAPIUnreachable = "API is not reachable. Please check your connection."

// Шаги сброса кэша, передаваемые в progress.
const (
	StepCheckingConnection = "Checking connection..."
	StepFetching           = "Fetching fresh data from source..."
	StepClearing           = "Clearing local cache..."
	StepWriting            = "Writing fresh data..."
	StepDone               = ""
)

// Константы сообщений движка.
const (
	LogMutationApplied   = "mutation applied locally"
	LogReplaySucceeded   = "remote replay succeeded"
	LogReplayFailed      = "remote replay failed, reverting local change"
	LogRollbackFailed    = "failed to revert local change, pending entry kept for recovery"
	LogPendingRemoveFail = "failed to remove confirmed pending entry"
	LogRowIndexFailed    = "failed to update row index cache"
	LogPullCompleted     = "pull completed"
	LogFlushCompleted    = "flush completed"
	LogFlushEntryFailed  = "failed to replay pending entry"
	LogRecoverPending    = "pending changes left by previous run, replaying"
	LogResetStep         = "cache reset step"
	LogResetCompleted    = "cache reset completed"
	LogWaitingReplays    = "waiting for in-flight replays"

	ErrApplyLocal    = "failed to apply change locally"
	ErrReadLocal     = "failed to read local note"
	ErrListRemote    = "failed to list remote rows"
	ErrListPending   = "failed to list pending entries"
	ErrRemovePending = "failed to remove pending entry"
	ErrResolveRow    = "failed to resolve row index"
	ErrWriteRemote   = "failed to write remote row"
	ErrPullApply     = "failed to apply remote row locally"
	ErrResetClear    = "failed to clear local cache"
	ErrResetWrite    = "failed to write fresh data"
	ErrCountPending  = "failed to count pending entries"
)
