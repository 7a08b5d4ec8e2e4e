// internal/storage/schema.go
package storage

// openLoanIndex lists the statuses loan.Loan.Open treats as open.
const openLoanIndex = `CREATE UNIQUE INDEX IF NOT EXISTS loans_one_open_per_artefact
    ON loans (artefact_id)
    WHERE status IN ('REQUESTED', 'APPROVED', 'ACTIVE', 'OVERDUE')`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    aggregate_id UUID NOT NULL,
    aggregate_type TEXT NOT NULL,
    event_type TEXT NOT NULL,
    event_data JSONB NOT NULL,
    metadata JSONB,
    version INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (aggregate_id, version)
)`,
	`CREATE TABLE IF NOT EXISTS visitors (
    username TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    salt TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS artefacts (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    loanable BOOLEAN NOT NULL DEFAULT TRUE,
    loan_fee BIGINT NOT NULL DEFAULT 0,
    active_loan_id BIGINT,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS loans (
    id BIGSERIAL PRIMARY KEY,
    status TEXT NOT NULL,
    submitted_date DATE NOT NULL,
    visitor_username TEXT NOT NULL,
    artefact_id BIGINT NOT NULL,
    due_date DATE,
    version INT NOT NULL DEFAULT 1
)`,
	openLoanIndex,
	`CREATE INDEX IF NOT EXISTS loans_visitor ON loans (visitor_username)`,
	`CREATE TABLE IF NOT EXISTS tours (
    id BIGSERIAL PRIMARY KEY,
    status TEXT NOT NULL,
    submitted_date DATE NOT NULL,
    visitor_username TEXT NOT NULL,
    price_per_person BIGINT NOT NULL,
    number_of_participants INT NOT NULL CHECK (number_of_participants > 0),
    shift_time TEXT NOT NULL,
    date DATE NOT NULL,
    version INT NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS tours_slot ON tours (date, shift_time)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    aggregate_id TEXT NOT NULL,
    aggregate_type TEXT NOT NULL,
    event_type TEXT NOT NULL,
    event_data TEXT NOT NULL,
    metadata TEXT,
    version INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (aggregate_id, version)
)`,
	`CREATE TABLE IF NOT EXISTS visitors (
    username TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    salt TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS artefacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    loanable BOOLEAN NOT NULL DEFAULT 1,
    loan_fee INTEGER NOT NULL DEFAULT 0,
    active_loan_id INTEGER,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS loans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL,
    submitted_date TEXT NOT NULL,
    visitor_username TEXT NOT NULL,
    artefact_id INTEGER NOT NULL,
    due_date TEXT,
    version INTEGER NOT NULL DEFAULT 1
)`,
	openLoanIndex,
	`CREATE INDEX IF NOT EXISTS loans_visitor ON loans (visitor_username)`,
	`CREATE TABLE IF NOT EXISTS tours (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL,
    submitted_date TEXT NOT NULL,
    visitor_username TEXT NOT NULL,
    price_per_person INTEGER NOT NULL,
    number_of_participants INTEGER NOT NULL CHECK (number_of_participants > 0),
    shift_time TEXT NOT NULL,
    date TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS tours_slot ON tours (date, shift_time)`,
}

var schemas = map[string][]string{
	DriverPostgres: postgresSchema,
	DriverSQLite:   sqliteSchema,
}
