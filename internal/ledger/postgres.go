package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository persists attendance records in the absensi table.
// The UNIQUE (siswa_id, tanggal) constraint is what makes Create safe
// under concurrent scans for the same student.
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

const recordColumns = `id, siswa_id, nis, tanggal, waktu::text, status, metode, scanner_lokasi, keterangan, created_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.SiswaID, &rec.NIS, &rec.Tanggal, &rec.Waktu,
		&rec.Status, &rec.Metode, &rec.Lokasi, &rec.Keterangan, &rec.CreatedAt)
	return rec, err
}

// Create inserts a record. A unique-constraint violation on
// (siswa_id, tanggal) is returned as *AlreadyRecordedError carrying the
// existing record for that day.
func (r *PostgresRepository) Create(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO absensi (id, siswa_id, nis, tanggal, waktu, status, metode, scanner_lokasi, keterangan)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, rec.ID, rec.SiswaID, rec.NIS, rec.Tanggal, rec.Waktu, rec.Status, rec.Metode, rec.Lokasi, rec.Keterangan)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, ferr := r.FindByStudentAndDate(ctx, rec.SiswaID, rec.Tanggal)
			if ferr != nil {
				return Record{}, fmt.Errorf("%w: load conflicting record: %v", ErrStorage, ferr)
			}
			return Record{}, &AlreadyRecordedError{Existing: existing}
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rec, nil
}

// Get returns a single record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM absensi WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rec, nil
}

// FindByStudentAndDate returns the day's record for a student, or ErrNotFound.
func (r *PostgresRepository) FindByStudentAndDate(ctx context.Context, siswaID int64, tanggal time.Time) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM absensi WHERE siswa_id = $1 AND tanggal = $2
	`, siswaID, tanggal))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rec, nil
}

// UpdateStatus mutates status and note of an existing record.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, keterangan string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		UPDATE absensi SET status = $2, keterangan = $3
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, status, keterangan))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rec, nil
}

// Delete removes a record.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM absensi WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByDate returns joined entries for a day with optional status and
// class filters.
func (r *PostgresRepository) ListByDate(ctx context.Context, tanggal time.Time, status Status, kelasID int64, limit, offset int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT a.id, a.siswa_id, a.nis, a.tanggal, a.waktu::text, a.status, a.metode,
		       a.scanner_lokasi, a.keterangan, a.created_at, s.nama, COALESCE(k.nama_kelas, '')
		FROM absensi a
		JOIN siswa s ON a.siswa_id = s.id
		LEFT JOIN kelas k ON s.kelas_id = k.id
		WHERE a.tanggal = $1`
	args := []any{tanggal}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if kelasID != 0 {
		args = append(args, kelasID)
		query += fmt.Sprintf(" AND s.kelas_id = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY a.waktu DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SiswaID, &e.NIS, &e.Tanggal, &e.Waktu, &e.Status,
			&e.Metode, &e.Lokasi, &e.Keterangan, &e.CreatedAt, &e.Nama, &e.Kelas); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// StudentHistory returns a student's records between two dates plus
// per-status counts for the range.
func (r *PostgresRepository) StudentHistory(ctx context.Context, siswaID int64, from, to time.Time) ([]Record, StatusCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM absensi
		WHERE siswa_id = $1 AND tanggal BETWEEN $2 AND $3
		ORDER BY tanggal DESC
	`, siswaID, from, to)
	if err != nil {
		return nil, StatusCounts{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var res []Record
	var counts StatusCounts
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, StatusCounts{}, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		counts.add(rec.Status)
		res = append(res, rec)
	}
	return res, counts, rows.Err()
}

// Statistics aggregates a day's records by status and by class.
func (r *PostgresRepository) Statistics(ctx context.Context, tanggal time.Time) (Statistics, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stats := Statistics{Tanggal: tanggal.Format("2006-01-02")}
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'Hadir' THEN 1 END),
			COUNT(CASE WHEN status = 'Izin' THEN 1 END),
			COUNT(CASE WHEN status = 'Sakit' THEN 1 END),
			COUNT(CASE WHEN status = 'Alpha' THEN 1 END),
			COUNT(CASE WHEN status = 'Terlambat' THEN 1 END)
		FROM absensi WHERE tanggal = $1
	`, tanggal)
	if err := row.Scan(&stats.Total, &stats.Counts.Hadir, &stats.Counts.Izin,
		&stats.Counts.Sakit, &stats.Counts.Alpha, &stats.Counts.Terlambat); err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT k.id, k.nama_kelas,
			COUNT(a.id),
			COUNT(CASE WHEN a.status = 'Hadir' THEN 1 END),
			COUNT(CASE WHEN a.status = 'Izin' THEN 1 END),
			COUNT(CASE WHEN a.status = 'Sakit' THEN 1 END),
			COUNT(CASE WHEN a.status = 'Alpha' THEN 1 END),
			COUNT(CASE WHEN a.status = 'Terlambat' THEN 1 END)
		FROM kelas k
		LEFT JOIN siswa s ON s.kelas_id = k.id
		LEFT JOIN absensi a ON a.siswa_id = s.id AND a.tanggal = $1
		GROUP BY k.id, k.nama_kelas
		ORDER BY k.nama_kelas
	`, tanggal)
	if err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs ClassSummary
		if err := rows.Scan(&cs.KelasID, &cs.Kelas, &cs.Total, &cs.Counts.Hadir,
			&cs.Counts.Izin, &cs.Counts.Sakit, &cs.Counts.Alpha, &cs.Counts.Terlambat); err != nil {
			return Statistics{}, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		stats.PerKelas = append(stats.PerKelas, cs)
	}
	return stats, rows.Err()
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusHadir:
		c.Hadir++
	case StatusIzin:
		c.Izin++
	case StatusSakit:
		c.Sakit++
	case StatusAlpha:
		c.Alpha++
	case StatusTerlambat:
		c.Terlambat++
	}
}
