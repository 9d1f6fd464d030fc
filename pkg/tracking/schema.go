package tracking

// SchemaVersion of the tracking database
const SchemaVersion = "1.0.0"

// DDL statements for database initialization
const (
	// Meta table stores version info
	CreateMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

	// Runs table holds one tracked run per annotated function
	CreateRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    run_name TEXT NOT NULL,
    file_name TEXT NOT NULL,
    function_name TEXT NOT NULL,
    model TEXT NOT NULL,
    temperature REAL NOT NULL,
    input_length INTEGER NOT NULL,
    output_length INTEGER NOT NULL DEFAULT 0,
    latency REAL NOT NULL DEFAULT 0,
    completeness REAL NOT NULL DEFAULT 0,
    density REAL NOT NULL DEFAULT 0,
    success INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);`

	CreateRunsCreatedIndex = `
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`

	CreateRunsModelIndex = `
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model, function_name);`

	// Artifacts are the raw texts of a run (annotation, input source)
	CreateArtifactsTable = `
CREATE TABLE IF NOT EXISTS artifacts (
    run_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (run_id, name),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);`

	EnableWALMode     = `PRAGMA journal_mode=WAL;`
	EnableForeignKeys = `PRAGMA foreign_keys=ON;`
)

// Meta keys
const (
	MetaKeySchemaVersion = "schema_version"
	MetaKeyCreatedAt     = "created_at"
)

// Artifact names
const (
	ArtifactAnnotation = "annotation"
	ArtifactInput      = "input"
)
