package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in memory for dev and tests. It gives
// the same uniqueness guarantee as the Postgres unique index: the
// existence check and the insert happen under one lock.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]Record
	byDay   map[dayKey]string
	created []string // insertion order, for stable listings
}

type dayKey struct {
	siswaID int64
	tanggal string
}

func keyFor(siswaID int64, tanggal time.Time) dayKey {
	return dayKey{siswaID: siswaID, tanggal: tanggal.Format("2006-01-02")}
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]Record),
		byDay: make(map[dayKey]string),
	}
}

// Create inserts a record or returns *AlreadyRecordedError for a
// duplicate (student, date) pair.
func (m *MemoryRepository) Create(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyFor(rec.SiswaID, rec.Tanggal)
	if existingID, ok := m.byDay[key]; ok {
		return Record{}, &AlreadyRecordedError{Existing: m.byID[existingID]}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.byID[rec.ID] = rec
	m.byDay[key] = rec.ID
	m.created = append(m.created, rec.ID)
	return rec, nil
}

// Get returns a single record by id.
func (m *MemoryRepository) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byID[id]; ok {
		return rec, nil
	}
	return Record{}, ErrNotFound
}

// FindByStudentAndDate returns the day's record for a student.
func (m *MemoryRepository) FindByStudentAndDate(_ context.Context, siswaID int64, tanggal time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byDay[keyFor(siswaID, tanggal)]; ok {
		return m.byID[id], nil
	}
	return Record{}, ErrNotFound
}

// UpdateStatus mutates status and note of an existing record.
func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, status Status, keterangan string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Status = status
	rec.Keterangan = keterangan
	m.byID[id] = rec
	return rec, nil
}

// Delete removes a record.
func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byDay, keyFor(rec.SiswaID, rec.Tanggal))
	for i, cid := range m.created {
		if cid == id {
			m.created = append(m.created[:i], m.created[i+1:]...)
			break
		}
	}
	return nil
}

// ListByDate returns entries for a day. Student names are not resolved
// here; the in-memory ledger has no identity join.
func (m *MemoryRepository) ListByDate(_ context.Context, tanggal time.Time, status Status, _ int64, limit, offset int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	day := tanggal.Format("2006-01-02")
	var all []Entry
	for _, id := range m.created {
		rec := m.byID[id]
		if rec.Tanggal.Format("2006-01-02") != day {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		all = append(all, Entry{Record: rec})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Waktu > all[j].Waktu })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// StudentHistory returns a student's records between two dates.
func (m *MemoryRepository) StudentHistory(_ context.Context, siswaID int64, from, to time.Time) ([]Record, StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	var counts StatusCounts
	for _, id := range m.created {
		rec := m.byID[id]
		if rec.SiswaID != siswaID || rec.Tanggal.Before(from) || rec.Tanggal.After(to) {
			continue
		}
		counts.add(rec.Status)
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Tanggal.After(res[j].Tanggal) })
	return res, counts, nil
}

// Statistics aggregates a day's records by status. PerKelas stays
// empty; the in-memory ledger has no class join.
func (m *MemoryRepository) Statistics(_ context.Context, tanggal time.Time) (Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Statistics{Tanggal: tanggal.Format("2006-01-02")}
	day := stats.Tanggal
	for _, rec := range m.byID {
		if rec.Tanggal.Format("2006-01-02") != day {
			continue
		}
		stats.Counts.add(rec.Status)
		stats.Total++
	}
	return stats, nil
}
