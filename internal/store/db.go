package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB is the Postgres handle behind the identity store, the attendance
// ledger, and the user table.
type DB struct {
	Client *sql.DB
}

// Open connects to Postgres through the pgx driver. The pool stays
// small: scan traffic is many short single-row inserts, and the unique
// constraint does the serialization, not the connections.
func Open(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// schemaStatements run at startup. The UNIQUE (siswa_id, tanggal)
// constraint on absensi is the invariant the whole ledger rests on: a
// concurrent duplicate scan becomes a 23505 instead of a second row.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS kelas (
		id BIGSERIAL PRIMARY KEY,
		nama_kelas TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS siswa (
		id BIGSERIAL PRIMARY KEY,
		nis TEXT NOT NULL UNIQUE,
		nisn TEXT NOT NULL UNIQUE,
		nama TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT 'L',
		kelas_id BIGINT REFERENCES kelas(id),
		card_version INT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS absensi (
		id UUID PRIMARY KEY,
		siswa_id BIGINT NOT NULL REFERENCES siswa(id),
		nis TEXT NOT NULL,
		tanggal DATE NOT NULL,
		waktu TIME NOT NULL,
		status TEXT NOT NULL,
		metode TEXT NOT NULL,
		scanner_lokasi TEXT NOT NULL DEFAULT '',
		keterangan TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT absensi_siswa_tanggal_key UNIQUE (siswa_id, tanggal)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		nama TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin'
	)`,
}

// EnsureSchema bootstraps the tables and constraints the service
// depends on.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
