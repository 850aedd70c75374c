package sqlite

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenDB opens (or creates) the database at path and applies the schema.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS regions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			shard_id INTEGER NOT NULL REFERENCES shards(id),
			UNIQUE(name, shard_id)
		);`,
		`CREATE TABLE IF NOT EXISTS agents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			uuid TEXT NOT NULL,
			shard_id INTEGER NOT NULL REFERENCES shards(id),
			UNIQUE(uuid, shard_id)
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			object_key TEXT NOT NULL UNIQUE,
			object_name TEXT NOT NULL,
			type INTEGER NOT NULL DEFAULT 0,
			shard_id INTEGER NOT NULL REFERENCES shards(id),
			region_id INTEGER NOT NULL REFERENCES regions(id),
			owner_id INTEGER NOT NULL REFERENCES agents(id),
			user_id INTEGER REFERENCES users(id),
			address TEXT NOT NULL,
			private_token TEXT NOT NULL UNIQUE,
			public_token TEXT NOT NULL UNIQUE,
			position_x REAL NOT NULL DEFAULT 0,
			position_y REAL NOT NULL DEFAULT 0,
			position_z REAL NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 0,
			created_on INTEGER NOT NULL,
			updated_on INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_servers_user ON servers(user_id, public_token);`,
		`CREATE TABLE IF NOT EXISTS server_proxies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			forced_path TEXT NOT NULL DEFAULT '',
			allow_user_query INTEGER NOT NULL DEFAULT 0,
			server_id INTEGER NOT NULL REFERENCES servers(id)
		);`,
		`CREATE TABLE IF NOT EXISTS sounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			duration REAL NOT NULL,
			created_on INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
