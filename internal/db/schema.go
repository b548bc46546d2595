package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- INGEST_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ingest_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS modality ON ingest_job TYPE string
        ASSERT $value IN ['audio', 'document', 'text'];
    DEFINE FIELD IF NOT EXISTS status ON ingest_job TYPE string DEFAULT 'pending'
        ASSERT $value IN ['pending', 'processing', 'completed', 'failed'];
    DEFINE FIELD IF NOT EXISTS chunk_count ON ingest_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS error ON ingest_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS source_date ON ingest_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS created ON ingest_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON ingest_job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS ingest_job_user ON ingest_job FIELDS user_id;
    DEFINE INDEX IF NOT EXISTS ingest_job_status ON ingest_job FIELDS status;
`
