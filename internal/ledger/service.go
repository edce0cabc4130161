package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service fills in record defaults and validates mutations before they
// reach storage.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordAttendance creates today's record for a student. Duplicate days
// come back as *AlreadyRecordedError; the uniqueness check happens in
// storage, atomically with the insert.
func (s *Service) RecordAttendance(ctx context.Context, siswaID int64, nis string, status Status, method Method, location, note string) (Record, error) {
	if !status.Valid() {
		return Record{}, ErrInvalidStatus
	}
	tanggal, waktu := Today()
	rec := Record{
		ID:         uuid.NewString(),
		SiswaID:    siswaID,
		NIS:        nis,
		Tanggal:    tanggal,
		Waktu:      waktu,
		Status:     status,
		Metode:     method,
		Lokasi:     location,
		Keterangan: note,
	}
	return s.repo.Create(ctx, rec)
}

// UpdateStatus mutates an existing record's status and note. The day's
// uniqueness is unaffected.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, keterangan string) (Record, error) {
	if !status.Valid() {
		return Record{}, ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, id, status, keterangan)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// TodayRecord returns the student's record for today, if any.
func (s *Service) TodayRecord(ctx context.Context, siswaID int64) (Record, error) {
	tanggal, _ := Today()
	return s.repo.FindByStudentAndDate(ctx, siswaID, tanggal)
}

// ListByDate returns joined entries for a day with optional filters.
func (s *Service) ListByDate(ctx context.Context, tanggal time.Time, status Status, kelasID int64, limit, offset int) ([]Entry, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListByDate(ctx, tanggal, status, kelasID, limit, offset)
}

// StudentHistory returns a student's records in a date range plus
// per-status counts.
func (s *Service) StudentHistory(ctx context.Context, siswaID int64, from, to time.Time) ([]Record, StatusCounts, error) {
	return s.repo.StudentHistory(ctx, siswaID, from, to)
}

// Statistics returns the per-day aggregate.
func (s *Service) Statistics(ctx context.Context, tanggal time.Time) (Statistics, error) {
	return s.repo.Statistics(ctx, tanggal)
}
