// Package scan orchestrates one scan event end to end: decode the
// payload, resolve the student, check card currency, record attendance.
// Every failure is terminal and maps to exactly one external outcome.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log"

	"absensi/internal/activity"
	"absensi/internal/ledger"
	"absensi/internal/student"
	"absensi/internal/token"
)

// ErrStaleCard means the signed payload's card_version no longer matches
// the student's current one: the card was reissued and the old code is
// revoked.
var ErrStaleCard = errors.New("kartu siswa sudah tidak berlaku")

// Result is a successful scan outcome.
type Result struct {
	Student student.Student
	Record  ledger.Record
}

// Feed receives successful scans for the dashboard activity view.
type Feed interface {
	Push(ctx context.Context, e activity.Entry) error
}

// Service runs the verification pipeline.
type Service struct {
	codec    *token.Codec
	students student.Repository
	records  *ledger.Service
	feed     Feed
}

// NewService wires the pipeline. feed may be nil.
func NewService(codec *token.Codec, students student.Repository, records *ledger.Service, feed Feed) *Service {
	return &Service{codec: codec, students: students, records: records, feed: feed}
}

// Verify processes one raw scanned payload. The returned error is one of
// the token errors, student.ErrNotFound, ErrStaleCard,
// *ledger.AlreadyRecordedError, or ledger.ErrStorage.
func (s *Service) Verify(ctx context.Context, raw, location string, method ledger.Method) (Result, error) {
	payload, err := s.codec.Decode(raw)
	if err != nil {
		observe(outcomeFor(err))
		return Result{}, err
	}

	st, err := s.resolve(ctx, payload)
	if err != nil {
		observe(outcomeFor(err))
		return Result{}, err
	}

	if payload.Kind == token.KindSigned && payload.Envelope.CardVersion != st.CardVersion {
		log.Printf("outdated card version | NIS=%s | QR=%d | DB=%d",
			st.NIS, payload.Envelope.CardVersion, st.CardVersion)
		observe("stale_card")
		return Result{}, ErrStaleCard
	}

	rec, err := s.records.RecordAttendance(ctx, st.ID, st.NIS, ledger.StatusHadir, method, location, "")
	if err != nil {
		observe(outcomeFor(err))
		// A duplicate still identifies the student; callers use that for
		// the friendly "already recorded" message.
		return Result{Student: st}, err
	}

	observe("ok")
	if s.feed != nil {
		if err := s.feed.Push(ctx, activity.Entry{
			NIS:    st.NIS,
			Nama:   st.Nama,
			Kelas:  st.Kelas,
			Waktu:  rec.Waktu,
			Metode: string(rec.Metode),
			Lokasi: rec.Lokasi,
		}); err != nil {
			log.Printf("activity feed push failed: %v", err)
		}
	}
	return Result{Student: st, Record: rec}, nil
}

// resolve maps a decoded payload to a student. The bare variant carries
// the national number, the signed envelope the registration number.
func (s *Service) resolve(ctx context.Context, p token.Payload) (student.Student, error) {
	var (
		st  student.Student
		err error
	)
	switch p.Kind {
	case token.KindBare:
		st, err = s.students.GetByNISN(ctx, p.NISN)
	case token.KindSigned:
		st, err = s.students.GetByNIS(ctx, p.Envelope.NIS)
	default:
		return student.Student{}, token.ErrUnsupported
	}
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return student.Student{}, err
		}
		return student.Student{}, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return st, nil
}
