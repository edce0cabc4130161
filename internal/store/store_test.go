package store

import (
	"context"
	"strings"
	"testing"
)

// The ledger's duplicate handling assumes the bootstrap declares the
// daily uniqueness constraint. Guard the DDL so a schema edit cannot
// silently drop it.
func TestSchemaDeclaresDailyUniqueness(t *testing.T) {
	all := strings.Join(schemaStatements, "\n")

	for _, want := range []string{
		"CONSTRAINT absensi_siswa_tanggal_key UNIQUE (siswa_id, tanggal)",
		"card_version INT NOT NULL DEFAULT 1",
		"nisn TEXT NOT NULL UNIQUE",
	} {
		if !strings.Contains(all, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestNilReceiversAreSafe(t *testing.T) {
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Error("nil Redis reported healthy")
	}
	if err := r.Close(); err != nil {
		t.Errorf("nil Redis Close: %v", err)
	}

	var d *DB
	if err := d.Close(); err != nil {
		t.Errorf("nil DB Close: %v", err)
	}
}
