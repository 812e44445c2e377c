package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    email_address  TEXT NOT NULL,
    grant_id       TEXT NOT NULL,
    provider       TEXT NOT NULL DEFAULT 'google',
    status         TEXT NOT NULL DEFAULT 'active',
    is_default     BOOLEAN NOT NULL DEFAULT FALSE,
    last_synced_at DATETIME,
    created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, email_address)
);

CREATE TABLE IF NOT EXISTS folder_mappings (
    id                 TEXT PRIMARY KEY,
    account_id         TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    remote_folder_id   TEXT NOT NULL,
    remote_folder_name TEXT NOT NULL,
    display_name       TEXT NOT NULL,
    parent_id          TEXT,
    category           TEXT NOT NULL DEFAULT 'custom',
    attributes         TEXT,
    enabled            BOOLEAN NOT NULL DEFAULT TRUE,
    bidirectional_sync BOOLEAN NOT NULL DEFAULT FALSE,
    total_count        INTEGER NOT NULL DEFAULT 0,
    unread_count       INTEGER NOT NULL DEFAULT 0,
    sort_order         INTEGER NOT NULL DEFAULT 999,
    last_synced_at     DATETIME,
    updated_at         DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(account_id, remote_folder_id)
);

CREATE TABLE IF NOT EXISTS emails (
    id                TEXT PRIMARY KEY,
    account_id        TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    folder_mapping_id TEXT REFERENCES folder_mappings(id) ON DELETE SET NULL,
    message_id        TEXT NOT NULL UNIQUE,
    thread_id         TEXT NOT NULL,
    subject           TEXT,
    from_addrs        TEXT,
    to_addrs          TEXT,
    cc_addrs          TEXT,
    bcc_addrs         TEXT,
    body_text         TEXT,
    snippet           TEXT,
    date              DATETIME NOT NULL,
    unread            BOOLEAN NOT NULL DEFAULT TRUE,
    starred           BOOLEAN NOT NULL DEFAULT FALSE,
    has_attachments   BOOLEAN NOT NULL DEFAULT FALSE,
    attachments       TEXT,
    created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_runs (
    id             TEXT PRIMARY KEY,
    account_id     TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    kind           TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'started',
    folders_synced INTEGER NOT NULL DEFAULT 0,
    emails_synced  INTEGER NOT NULL DEFAULT 0,
    errors         TEXT,
    started_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    completed_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_folder_mappings_account ON folder_mappings(account_id);
CREATE INDEX IF NOT EXISTS idx_emails_account ON emails(account_id);
CREATE INDEX IF NOT EXISTS idx_emails_folder ON emails(folder_mapping_id);
CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date DESC);
CREATE INDEX IF NOT EXISTS idx_sync_runs_account ON sync_runs(account_id);
`
