package database

// schema is the single source of truth for the folio database layout.
// Deleting a portfolio cascades its holdings, operations and watches;
// deleting an account cascades its portfolios and outstanding link codes.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	username         TEXT NOT NULL UNIQUE,
	email            TEXT NOT NULL DEFAULT '',
	telegram_chat_id INTEGER UNIQUE,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS currencies (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	short_name  TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	currency_id INTEGER NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
	cost        TEXT NOT NULL,
	timestamp   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rates_currency_ts ON rates(currency_id, timestamp DESC, id DESC);

CREATE TABLE IF NOT EXISTS portfolios (
	id               TEXT PRIMARY KEY,
	account_id       INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	balance          TEXT NOT NULL,
	notify_threshold REAL,
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolios_account ON portfolios(account_id);

CREATE TABLE IF NOT EXISTS holdings (
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	currency_id  INTEGER NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
	amount       TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, currency_id)
);

CREATE TABLE IF NOT EXISTS operations (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	currency_id  INTEGER NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
	type         TEXT NOT NULL CHECK (type IN ('BUY', 'SELL')),
	amount       TEXT NOT NULL,
	price        TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_portfolio ON operations(portfolio_id, created_at);

CREATE TABLE IF NOT EXISTS watches (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	currency_id  INTEGER NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
	notify_time  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_watches_portfolio ON watches(portfolio_id);

CREATE TABLE IF NOT EXISTS link_codes (
	code       TEXT PRIMARY KEY,
	account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_link_codes_expiry ON link_codes(expires_at);
`
