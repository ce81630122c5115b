package stats

import (
	"context"
	"testing"
	"time"

	"noteface-service/db"
	"noteface-service/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
)

func newStore(t *testing.T) *db.RedisDB {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.NewRedisDB(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisDB() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addDownloads(t *testing.T, store db.Store, document string, events ...models.DownloadEvent) {
	t.Helper()
	ctx := context.Background()
	if err := store.SAdd(ctx, db.DocumentsKey, document); err != nil {
		t.Fatalf("SAdd() error = %v", err)
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if err := store.SAdd(ctx, db.DownloadsKey(document), string(data)); err != nil {
			t.Fatalf("SAdd() error = %v", err)
		}
	}
}

func at(hour, minute int) int64 {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, time.UTC).Unix()
}

func TestStatsFor_EmptyLog(t *testing.T) {
	a := NewAggregator(newStore(t), nil)

	stats, err := a.StatsFor(context.Background(), "syllabus")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}
	if stats.Name != "syllabus" || stats.Downloads != 0 {
		t.Errorf("StatsFor() = %+v, want zero downloads", stats)
	}
	if len(stats.Users) != 0 || len(stats.Days) != 0 || len(stats.Hours) != 0 {
		t.Errorf("StatsFor() has non-empty buckets: %+v", stats)
	}
}

func TestStatsFor_Syllabus(t *testing.T) {
	store := newStore(t)
	addDownloads(t, store, "syllabus",
		models.DownloadEvent{IP: "A", UserAgent: "ua", Time: at(9, 5), SHA: "abc"},
		models.DownloadEvent{IP: "A", UserAgent: "ua", Time: at(9, 40), SHA: "abc"},
		models.DownloadEvent{IP: "B", UserAgent: "ua", Time: at(23, 10), SHA: "abc"},
	)

	stats, err := NewAggregator(store, time.UTC).StatsFor(context.Background(), "syllabus")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}

	if stats.Downloads != 3 {
		t.Errorf("Downloads = %d, want 3", stats.Downloads)
	}
	if len(stats.Hours) != 2 || stats.Hours[9] != 2 || stats.Hours[23] != 1 {
		t.Errorf("Hours = %v, want {9:2, 23:1}", stats.Hours)
	}
	if len(stats.Days) != 1 || stats.Days["2024-03-04"] != 3 {
		t.Errorf("Days = %v, want {2024-03-04:3}", stats.Days)
	}
	wantA := models.UserStats{Downloads: 2, FirstDownload: at(9, 5), LatestDownload: at(9, 40)}
	if stats.Users["A"] != wantA {
		t.Errorf("Users[A] = %+v, want %+v", stats.Users["A"], wantA)
	}
	if stats.Users["B"].Downloads != 1 {
		t.Errorf("Users[B] = %+v, want 1 download", stats.Users["B"])
	}
}

func TestStatsFor_UserWindow(t *testing.T) {
	store := newStore(t)
	times := []int64{1700000500, 1700000100, 1700000900, 1700000300}
	var events []models.DownloadEvent
	for _, ts := range times {
		events = append(events, models.DownloadEvent{IP: "10.0.0.1", UserAgent: "ua", Time: ts, SHA: "abc"})
	}
	addDownloads(t, store, "notes", events...)

	stats, err := NewAggregator(store, nil).StatsFor(context.Background(), "notes")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}
	want := models.UserStats{Downloads: 4, FirstDownload: 1700000100, LatestDownload: 1700000900}
	if got := stats.Users["10.0.0.1"]; got != want {
		t.Errorf("Users = %+v, want %+v", got, want)
	}
}

func TestStatsFor_Timezone(t *testing.T) {
	store := newStore(t)
	addDownloads(t, store, "syllabus",
		models.DownloadEvent{IP: "A", Time: at(23, 10), SHA: "abc"},
	)

	loc, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	stats, err := NewAggregator(store, loc).StatsFor(context.Background(), "syllabus")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}
	if stats.Hours[8] != 1 || stats.Days["2024-03-05"] != 1 {
		t.Errorf("Tokyo buckets = %v %v, want hour 8 on 2024-03-05", stats.Hours, stats.Days)
	}
}

func TestStatsFor_MalformedSkipped(t *testing.T) {
	store := newStore(t)
	addDownloads(t, store, "syllabus", models.DownloadEvent{IP: "A", Time: at(9, 0), SHA: "abc"})
	malformed := []string{
		"{not json",
		`{"ip":7}`,
		"[]",
		"null",
		"{}",
		`{"ip":"A"}`,
		`{"time":1709542800}`,
		`{"ip":"B","time":-5}`,
	}
	if err := store.SAdd(context.Background(), db.DownloadsKey("syllabus"), malformed...); err != nil {
		t.Fatalf("SAdd() error = %v", err)
	}

	stats, err := NewAggregator(store, nil).StatsFor(context.Background(), "syllabus")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}
	if stats.Downloads != 1 || stats.Malformed != int64(len(malformed)) {
		t.Errorf("Downloads = %d, Malformed = %d; want 1 and %d", stats.Downloads, stats.Malformed, len(malformed))
	}
	if _, ok := stats.Users[""]; ok || len(stats.Users) != 1 {
		t.Errorf("Users = %v, want only A", stats.Users)
	}
	if len(stats.Days) != 1 || stats.Days["1970-01-01"] != 0 {
		t.Errorf("Days = %v, want only the valid event's day", stats.Days)
	}

	global, err := NewAggregator(store, nil).AllStats(context.Background())
	if err != nil {
		t.Fatalf("AllStats() error = %v", err)
	}
	if global.UsersCount != 1 || global.Malformed != int64(len(malformed)) {
		t.Errorf("UsersCount = %d, Malformed = %d; want 1 and %d", global.UsersCount, global.Malformed, len(malformed))
	}
}

// racingStore reports a cardinality that no longer matches the members it returned
type racingStore struct {
	db.Store
	extra int64
}

func (s racingStore) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.Store.SCard(ctx, key)
	return n + s.extra, err
}

func TestStatsFor_CardinalityMismatch(t *testing.T) {
	store := newStore(t)
	addDownloads(t, store, "syllabus",
		models.DownloadEvent{IP: "A", Time: at(9, 0), SHA: "abc"},
		models.DownloadEvent{IP: "B", Time: at(10, 0), SHA: "abc"},
	)

	stats, err := NewAggregator(racingStore{Store: store, extra: 3}, nil).StatsFor(context.Background(), "syllabus")
	if err != nil {
		t.Fatalf("StatsFor() error = %v", err)
	}
	if stats.Downloads != 2 {
		t.Errorf("Downloads = %d, want the 2 decoded events", stats.Downloads)
	}
}

func TestAllStats_SharedUserCountedOnce(t *testing.T) {
	store := newStore(t)
	addDownloads(t, store, "syllabus", models.DownloadEvent{IP: "A", Time: at(9, 0), SHA: "abc"})
	addDownloads(t, store, "notes",
		models.DownloadEvent{IP: "A", Time: at(10, 0), SHA: "def"},
		models.DownloadEvent{IP: "A", Time: at(11, 0), SHA: "def"},
	)

	global, err := NewAggregator(store, nil).AllStats(context.Background())
	if err != nil {
		t.Fatalf("AllStats() error = %v", err)
	}
	if global.UsersCount != 1 {
		t.Errorf("UsersCount = %d, want 1", global.UsersCount)
	}
	if len(global.Documents) != 2 {
		t.Fatalf("Documents = %d, want 2", len(global.Documents))
	}
	if global.Documents["syllabus"].Users["A"].Downloads != 1 || global.Documents["notes"].Users["A"].Downloads != 2 {
		t.Errorf("per-document users = %+v / %+v",
			global.Documents["syllabus"].Users, global.Documents["notes"].Users)
	}
}

func TestAllStats_EmptyRegistry(t *testing.T) {
	global, err := NewAggregator(newStore(t), nil).AllStats(context.Background())
	if err != nil {
		t.Fatalf("AllStats() error = %v", err)
	}
	if global.UsersCount != 0 || len(global.Documents) != 0 {
		t.Errorf("AllStats() = %+v, want empty", global)
	}
}

func TestLoadLocation(t *testing.T) {
	if loc, err := LoadLocation(""); err != nil || loc != time.UTC {
		t.Errorf("LoadLocation(\"\") = %v, %v", loc, err)
	}
	if _, err := LoadLocation("Mars/Olympus"); err == nil {
		t.Error("LoadLocation(invalid) error = nil")
	}
}
