package activity

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Entry is one line of the recent-scan feed shown on the dashboard.
type Entry struct {
	NIS    string `json:"nis"`
	Nama   string `json:"nama"`
	Kelas  string `json:"kelas,omitempty"`
	Waktu  string `json:"waktu"`
	Metode string `json:"metode"`
	Lokasi string `json:"lokasi,omitempty"`
}

// Feed keeps the last N scans in a capped Redis list. It is a
// convenience view, not the source of truth; every write is best-effort.
type Feed struct {
	client *redis.Client
	key    string
	max    int64
}

// NewFeed creates a feed capped at max entries.
func NewFeed(client *redis.Client, key string, max int) *Feed {
	if key == "" {
		key = "absensi:recent"
	}
	if max <= 0 {
		max = 100
	}
	return &Feed{client: client, key: key, max: int64(max)}
}

// Push prepends an entry and trims the list to the cap.
func (f *Feed) Push(ctx context.Context, e Entry) error {
	if f == nil || f.client == nil {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, f.key, body)
	pipe.LTrim(ctx, f.key, 0, f.max-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n of the newest entries.
func (f *Feed) Recent(ctx context.Context, n int) ([]Entry, error) {
	if f == nil || f.client == nil {
		return nil, nil
	}
	if n <= 0 || int64(n) > f.max {
		n = int(f.max)
	}
	raw, err := f.client.LRange(ctx, f.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
