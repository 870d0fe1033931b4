package sqlite

// artifactSchema is the segment artifact's self-describing SQLite
// schema — the contract named in spec §6.5. One database file per
// segment_id; never mutated after publish.
const artifactSchema = `
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    doc_id           INTEGER PRIMARY KEY,
    url              TEXT NOT NULL,
    title            TEXT NOT NULL DEFAULT '',
    body             TEXT NOT NULL DEFAULT '',
    excerpt          TEXT NOT NULL DEFAULT '',
    path             TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url);

CREATE TABLE IF NOT EXISTS postings (
    field          TEXT NOT NULL,
    term           TEXT NOT NULL,
    doc_id         INTEGER NOT NULL,
    tf             INTEGER NOT NULL,
    doc_length     INTEGER NOT NULL,
    positions_blob BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postings_field_term ON postings(field, term);

CREATE TABLE IF NOT EXISTS bloom_blocks (
    block_index INTEGER PRIMARY KEY,
    bits        BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS field_stats (
    field       TEXT PRIMARY KEY,
    total_terms INTEGER NOT NULL,
    doc_count   INTEGER NOT NULL
);
`
