package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepository reads students from the siswa table.
type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepository creates a repo with a bounded per-call timeout.
func NewPostgresRepository(db *sql.DB, timeout time.Duration) *PostgresRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresRepository{db: db, timeout: timeout}
}

const studentColumns = `
	s.id, s.nis, s.nisn, s.nama, s.gender, s.kelas_id, COALESCE(k.nama_kelas, ''), s.card_version
`

func (r *PostgresRepository) getBy(ctx context.Context, where string, arg any) (Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM siswa s
		LEFT JOIN kelas k ON s.kelas_id = k.id
		WHERE `+where, arg)
	var s Student
	if err := row.Scan(&s.ID, &s.NIS, &s.NISN, &s.Nama, &s.Gender, &s.KelasID, &s.Kelas, &s.CardVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, fmt.Errorf("student lookup: %w", err)
	}
	return s, nil
}

// GetByNIS returns the student with the given registration number.
func (r *PostgresRepository) GetByNIS(ctx context.Context, nis string) (Student, error) {
	return r.getBy(ctx, "s.nis = $1", nis)
}

// GetByNISN returns the student with the given national number.
func (r *PostgresRepository) GetByNISN(ctx context.Context, nisn string) (Student, error) {
	return r.getBy(ctx, "s.nisn = $1", nisn)
}

// GetByID returns the student with the given surrogate id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Student, error) {
	return r.getBy(ctx, "s.id = $1", id)
}

// BumpCardVersion increments card_version, invalidating previously
// issued signed QR codes for the student.
func (r *PostgresRepository) BumpCardVersion(ctx context.Context, nis string) (Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE siswa SET card_version = card_version + 1 WHERE nis = $1
	`, nis)
	if err != nil {
		return Student{}, fmt.Errorf("bump card version: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Student{}, ErrNotFound
	}
	return r.GetByNIS(ctx, nis)
}

// List returns all students ordered by registration number.
func (r *PostgresRepository) List(ctx context.Context) ([]Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM siswa s
		LEFT JOIN kelas k ON s.kelas_id = k.id
		ORDER BY s.nis
	`)
	if err != nil {
		return nil, fmt.Errorf("student list: %w", err)
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.NIS, &s.NISN, &s.Nama, &s.Gender, &s.KelasID, &s.Kelas, &s.CardVersion); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
