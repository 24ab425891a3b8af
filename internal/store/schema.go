package store

// schemaVersion1 is the current per-case schema.
const schemaVersion1 = 1

// factTables lists every per-log-type fact table. All share one shape; the
// log type decides which table a row lands in.
var factTables = []string{
	"signin_events",
	"unified_audit",
	"mailbox_audit",
	"admin_audit",
	"message_trace",
}

// factTableDDL is the shared fact-table shape. natural_key carries the row
// idempotence constraint; fields and raw are zstd blobs (codec sniffs the
// magic, so plain legacy values still read back).
const factTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_time  TEXT NOT NULL,
	actor       TEXT NOT NULL DEFAULT '',
	origin      TEXT NOT NULL DEFAULT '',
	natural_key TEXT NOT NULL UNIQUE,
	fields      BLOB NOT NULL,
	raw         BLOB NOT NULL,
	import_id   INTEGER NOT NULL REFERENCES import_records(id),
	imported_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%s_actor ON %s(actor);
CREATE INDEX IF NOT EXISTS idx_%s_origin ON %s(origin);
CREATE INDEX IF NOT EXISTS idx_%s_time ON %s(event_time);
`

// schemaMeta is the provenance/assessment/summary tier of a case store.
var schemaMeta = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS import_records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id      TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	log_type       TEXT NOT NULL,
	imported       INTEGER NOT NULL DEFAULT 0,
	failed         INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	parser_version TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	UNIQUE(content_hash, log_type)
);

CREATE TABLE IF NOT EXISTS quality_assessments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	log_type   TEXT NOT NULL,
	import_id  INTEGER NOT NULL REFERENCES import_records(id),
	score      REAL NOT NULL,
	passed     INTEGER NOT NULL,
	warnings   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_summaries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	log_type      TEXT NOT NULL UNIQUE,
	status        TEXT NOT NULL,
	field_used    TEXT NOT NULL DEFAULT '',
	records       INTEGER NOT NULL DEFAULT 0,
	successes     INTEGER NOT NULL DEFAULT 0,
	failures      INTEGER NOT NULL DEFAULT 0,
	indeterminate INTEGER NOT NULL DEFAULT 0,
	success_rate  REAL NOT NULL DEFAULT 0,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_hash ON import_records(content_hash, log_type);
CREATE INDEX IF NOT EXISTS idx_assessments_import ON quality_assessments(import_id);
`
