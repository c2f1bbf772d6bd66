// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	position_id TEXT NOT NULL,
	action TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	size REAL NOT NULL,
	leverage REAL NOT NULL,
	margin REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_position ON trades(position_id);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	total_value REAL NOT NULL,
	margin_used REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
