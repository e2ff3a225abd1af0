// Schema for the SQLite store: one row per store key.
package sqlite

// Schema DDL. The store holds at most one row per key; value is the JSON
// blob written by the application state.
const (
	createKV = `CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Statements used by Backend.
const (
	selectValue = `SELECT value FROM kv WHERE key = ?`
	upsertValue = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	selectUpdatedAt = `SELECT updated_at FROM kv WHERE key = ?`
)

// schemaDDL lists all statements executed on Attach.
var schemaDDL = []string{
	createKV,
}
