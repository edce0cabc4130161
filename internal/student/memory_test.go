package student

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepositoryLookups(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	st := repo.Add(Student{NIS: "2021001", NISN: "0096279244", Nama: "Budi Santoso"})

	if st.ID == 0 {
		t.Fatal("Add did not assign an id")
	}
	if st.CardVersion != 1 {
		t.Errorf("card_version = %d, want 1", st.CardVersion)
	}

	byNIS, err := repo.GetByNIS(ctx, "2021001")
	if err != nil || byNIS.ID != st.ID {
		t.Errorf("GetByNIS = %+v, %v", byNIS, err)
	}
	byNISN, err := repo.GetByNISN(ctx, "0096279244")
	if err != nil || byNISN.ID != st.ID {
		t.Errorf("GetByNISN = %+v, %v", byNISN, err)
	}
	byID, err := repo.GetByID(ctx, st.ID)
	if err != nil || byID.NIS != "2021001" {
		t.Errorf("GetByID = %+v, %v", byID, err)
	}

	if _, err := repo.GetByNIS(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestBumpCardVersion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	repo.Add(Student{NIS: "2021001", NISN: "0096279244", Nama: "Budi Santoso"})

	bumped, err := repo.BumpCardVersion(ctx, "2021001")
	if err != nil {
		t.Fatalf("BumpCardVersion: %v", err)
	}
	if bumped.CardVersion != 2 {
		t.Errorf("card_version = %d, want 2", bumped.CardVersion)
	}

	again, _ := repo.GetByNIS(ctx, "2021001")
	if again.CardVersion != 2 {
		t.Errorf("stored card_version = %d, want 2", again.CardVersion)
	}

	if _, err := repo.BumpCardVersion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
