package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the recorded attendance status.
type Status string

// Attendance statuses. Scans always record Hadir; the others come from
// manual entry or administrative updates.
const (
	StatusHadir     Status = "Hadir"
	StatusIzin      Status = "Izin"
	StatusSakit     Status = "Sakit"
	StatusAlpha     Status = "Alpha"
	StatusTerlambat Status = "Terlambat"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusHadir, StatusIzin, StatusSakit, StatusAlpha, StatusTerlambat:
		return true
	}
	return false
}

// Method identifies how a record was created. Values match what the
// legacy scanners already send.
type Method string

const (
	MethodScannerNIS  Method = "Scanner (Legacy)"
	MethodScannerNISN Method = "Scanner"
	MethodQR          Method = "QR Scanner"
	MethodManual      Method = "manual"
)

// Record is one attendance entry. At most one record exists per
// (SiswaID, Tanggal) pair; the storage layer enforces that.
type Record struct {
	ID         string    `json:"id"`
	SiswaID    int64     `json:"siswa_id"`
	NIS        string    `json:"nis"`
	Tanggal    time.Time `json:"tanggal"`
	Waktu      string    `json:"waktu"`
	Status     Status    `json:"status"`
	Metode     Method    `json:"metode"`
	Lokasi     string    `json:"scanner_lokasi"`
	Keterangan string    `json:"keterangan,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entry is a record joined with the student's display identity, used by
// listing and history queries.
type Entry struct {
	Record
	Nama  string `json:"nama"`
	Kelas string `json:"kelas"`
}

// StatusCounts aggregates records per status.
type StatusCounts struct {
	Hadir     int `json:"hadir"`
	Izin      int `json:"izin"`
	Sakit     int `json:"sakit"`
	Alpha     int `json:"alpha"`
	Terlambat int `json:"terlambat"`
}

// ClassSummary aggregates one class for a day.
type ClassSummary struct {
	KelasID int64        `json:"kelas_id"`
	Kelas   string       `json:"kelas"`
	Counts  StatusCounts `json:"counts"`
	Total   int          `json:"total"`
}

// Statistics is the per-day aggregate consumed by dashboards.
type Statistics struct {
	Tanggal  string         `json:"tanggal"`
	Counts   StatusCounts   `json:"counts"`
	Total    int            `json:"total"`
	PerKelas []ClassSummary `json:"per_kelas"`
}

var (
	// ErrNotFound is returned for operations on a missing record.
	ErrNotFound = errors.New("absensi tidak ditemukan")
	// ErrStorage wraps infrastructure failures; callers map it to 500 and
	// never expose the underlying error.
	ErrStorage = errors.New("penyimpanan tidak tersedia")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("status tidak valid")
)

// AlreadyRecordedError reports that the (student, date) pair already has
// a record. It carries the existing record so callers can show its time.
type AlreadyRecordedError struct {
	Existing Record
}

func (e *AlreadyRecordedError) Error() string {
	return fmt.Sprintf("sudah absen hari ini (%s)", e.Existing.Waktu)
}

// Repository persists attendance records. Create must be atomic with the
// per-day uniqueness check: a duplicate surfaces as AlreadyRecordedError,
// never as a silently overwritten or doubled row.
type Repository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	FindByStudentAndDate(ctx context.Context, siswaID int64, tanggal time.Time) (Record, error)
	UpdateStatus(ctx context.Context, id string, status Status, keterangan string) (Record, error)
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, tanggal time.Time, status Status, kelasID int64, limit, offset int) ([]Entry, error)
	StudentHistory(ctx context.Context, siswaID int64, from, to time.Time) ([]Record, StatusCounts, error)
	Statistics(ctx context.Context, tanggal time.Time) (Statistics, error)
}

// Today returns the current calendar date in local time, truncated to
// midnight, and the time of day as HH:MM:SS.
func Today() (time.Time, string) {
	now := time.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now.Format("15:04:05")
}
