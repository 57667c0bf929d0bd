package sqlite

// migrations версии схемы встроенной базы. Номер версии равен индексу плюс один
// и хранится в PRAGMA user_version. Новые версии только добавляются в конец.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS notes (
        id          TEXT PRIMARY KEY,
        source_id   TEXT    NOT NULL DEFAULT 'default',
        title       TEXT    NOT NULL DEFAULT '',
        content     TEXT    NOT NULL DEFAULT '',
        tags        TEXT    NOT NULL DEFAULT '',
        created_at  INTEGER NOT NULL,
        updated_at  INTEGER NOT NULL,
        deleted_at  INTEGER
    );
    CREATE INDEX IF NOT EXISTS idx_notes_source_id ON notes (source_id);
    CREATE INDEX IF NOT EXISTS idx_notes_title ON notes (title);
    CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes (created_at);
    CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes (updated_at);`,

	`CREATE TABLE IF NOT EXISTS pending_sync (
        id         TEXT PRIMARY KEY,
        source_id  TEXT    NOT NULL,
        note_id    TEXT    NOT NULL,
        operation  TEXT    NOT NULL CHECK (operation IN ('create', 'update', 'delete')),
        payload    TEXT,
        queued_at  INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_pending_sync_source_id ON pending_sync (source_id);
    CREATE INDEX IF NOT EXISTS idx_pending_sync_note_id ON pending_sync (note_id);
    CREATE INDEX IF NOT EXISTS idx_pending_sync_operation ON pending_sync (operation);
    CREATE INDEX IF NOT EXISTS idx_pending_sync_queued_at ON pending_sync (queued_at);`,
}

// SchemaVersion последняя версия схемы.
func SchemaVersion() int {
	return len(migrations)
}
