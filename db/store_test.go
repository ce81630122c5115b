package db

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"noteface-service/models"

	"github.com/alicebob/miniredis/v2"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	redisDB, err := NewRedisDB(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisDB() error = %v", err)
	}

	sqliteDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB() error = %v", err)
	}

	badgerDB, err := NewBadgerDB("")
	if err != nil {
		t.Fatalf("NewBadgerDB() error = %v", err)
	}

	stores := map[string]Store{
		DriverRedis:  redisDB,
		DriverSQLite: sqliteDB,
		DriverBadger: badgerDB,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "syllabus:latest"); !models.IsNotFound(err) {
				t.Fatalf("Get(missing) error = %v, want NotFoundError", err)
			}

			if err := s.Set(ctx, "syllabus:latest", "abc123"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, "syllabus:latest", "def456"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}

			got, err := s.Get(ctx, "syllabus:latest")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != "def456" {
				t.Errorf("Get() = %q, want %q", got, "def456")
			}
		})
	}
}

func TestStore_Sets(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			members, err := s.SMembers(ctx, "syllabus:downloads")
			if err != nil {
				t.Fatalf("SMembers(empty) error = %v", err)
			}
			if len(members) != 0 {
				t.Errorf("SMembers(empty) = %v, want none", members)
			}

			if err := s.SAdd(ctx, "syllabus:downloads", "a", "b"); err != nil {
				t.Fatalf("SAdd() error = %v", err)
			}
			// duplicates collapse
			if err := s.SAdd(ctx, "syllabus:downloads", "b", "c"); err != nil {
				t.Fatalf("SAdd() error = %v", err)
			}
			if err := s.SAdd(ctx, "syllabus2:downloads", "z"); err != nil {
				t.Fatalf("SAdd() error = %v", err)
			}

			members, err = s.SMembers(ctx, "syllabus:downloads")
			if err != nil {
				t.Fatalf("SMembers() error = %v", err)
			}
			sort.Strings(members)
			if len(members) != 3 || members[0] != "a" || members[1] != "b" || members[2] != "c" {
				t.Errorf("SMembers() = %v, want [a b c]", members)
			}

			n, err := s.SCard(ctx, "syllabus:downloads")
			if err != nil {
				t.Fatalf("SCard() error = %v", err)
			}
			if n != 3 {
				t.Errorf("SCard() = %d, want 3", n)
			}
		})
	}
}

func TestGetOptional(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadgerDB("")
	if err != nil {
		t.Fatalf("NewBadgerDB() error = %v", err)
	}
	defer s.Close()

	v, err := GetOptional(ctx, s, "missing")
	if err != nil || v != nil {
		t.Fatalf("GetOptional(missing) = %v, %v; want nil, nil", v, err)
	}

	s.Set(ctx, "present", "1")
	v, err = GetOptional(ctx, s, "present")
	if err != nil || v == nil || *v != "1" {
		t.Fatalf("GetOptional(present) = %v, %v", v, err)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{LatestKey("syllabus"), "syllabus:latest"},
		{TimestampKey("abc"), "abc:timestamp"},
		{DownloadsKey("syllabus"), "syllabus:downloads"},
		{CourseKey("syllabus", "code"), "syllabus:course:code"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSQLDB_Rebind(t *testing.T) {
	s := &SQLDB{numeric: true}
	got := s.rebind(`INSERT INTO kv (name, value) VALUES (?, ?)`)
	want := `INSERT INTO kv (name, value) VALUES ($1, $2)`
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}

	s.numeric = false
	if got := s.rebind(`SELECT ?`); got != `SELECT ?` {
		t.Errorf("rebind() without numeric = %q", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "memcached"}); err == nil {
		t.Fatal("Open(memcached) error = nil, want error")
	}
}

func TestRedisDB_Incr(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedisDB(mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisDB() error = %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := r.Incr(ctx, "ratelimit:a", time.Minute)
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if got != want {
			t.Errorf("Incr() = %d, want %d", got, want)
		}
	}
	if ttl := mr.TTL("ratelimit:a"); ttl != time.Minute {
		t.Errorf("TTL = %v, want window set once", ttl)
	}

	// a counter left without expiry is repaired on the next hit
	mr.Set("ratelimit:b", "7")
	got, err := r.Incr(ctx, "ratelimit:b", time.Minute)
	if err != nil {
		t.Fatalf("Incr() error = %v", err)
	}
	if got != 8 || mr.TTL("ratelimit:b") != time.Minute {
		t.Errorf("Incr() = %d, TTL = %v; want 8 and 1m", got, mr.TTL("ratelimit:b"))
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := r.Incr(ctx, "ratelimit:a", time.Minute); got != 1 {
		t.Errorf("Incr() after window = %d, want 1", got)
	}
}
