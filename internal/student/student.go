package student

import (
	"context"
	"errors"
)

// Student is a registered student. NIS is the school-assigned registration
// number, NISN the government-issued 10-digit number. CardVersion increases
// when a new physical card is issued and invalidates previously printed
// signed QR codes.
type Student struct {
	ID          int64  `json:"id"`
	NIS         string `json:"nis"`
	NISN        string `json:"nisn"`
	Nama        string `json:"nama"`
	Gender      string `json:"gender"`
	KelasID     *int64 `json:"kelas_id,omitempty"`
	Kelas       string `json:"kelas,omitempty"`
	CardVersion int    `json:"card_version"`
}

// ErrNotFound is returned when no student matches the given identifier.
var ErrNotFound = errors.New("siswa tidak ditemukan")

// Repository resolves student identities. The engine only reads; writes
// belong to the administrative CRUD, except BumpCardVersion which backs
// card reissue.
type Repository interface {
	GetByNIS(ctx context.Context, nis string) (Student, error)
	GetByNISN(ctx context.Context, nisn string) (Student, error)
	GetByID(ctx context.Context, id int64) (Student, error)
	BumpCardVersion(ctx context.Context, nis string) (Student, error)
	List(ctx context.Context) ([]Student, error)
}
