// Package stats folds the per-document download logs into rollups.
//
// Nothing is cached or stored: every call rescans the logs, so results are
// always re-derivable from the logs and the document registry.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noteface-service/db"
	"noteface-service/logging"
	"noteface-service/metrics"
	"noteface-service/models"

	"github.com/goccy/go-json"
)

const dayLayout = "2006-01-02"

type Aggregator struct {
	store db.Store
	loc   *time.Location
}

// NewAggregator buckets days and hours in loc; nil means UTC
func NewAggregator(store db.Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc}
}

// LoadLocation resolves a configured timezone name, "" being UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid stats timezone %q: %w", name, err)
	}
	return loc, nil
}

// StatsFor aggregates one document's download log
func (a *Aggregator) StatsFor(ctx context.Context, document string) (*models.DocumentStats, error) {
	start := time.Now()
	defer func() { metrics.RecordStats("document", time.Since(start)) }()

	key := db.DownloadsKey(document)
	members, err := a.store.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads of %s: %w", document, err)
	}

	stats := models.NewDocumentStats(document)
	for _, raw := range members {
		event, err := decodeEvent(raw)
		if err != nil {
			stats.Malformed++
			metrics.MalformedEvents.Inc()
			logging.Warn().Err(err).
				Str("document", document).
				Msg("Skipping malformed download event")
			continue
		}
		a.fold(stats, event)
	}

	count, err := a.store.SCard(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads of %s: %w", document, err)
	}
	if count != int64(len(members)) {
		// an append landed between the two reads
		logging.Debug().
			Str("document", document).
			Int64("cardinality", count).
			Int("members", len(members)).
			Msg("Download log changed during aggregation")
	}

	return stats, nil
}

// decodeEvent parses one log member. Logs are written by other processes,
// so an event without a client IP or a positive timestamp is rejected.
func decodeEvent(raw string) (models.DownloadEvent, error) {
	var event models.DownloadEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, err
	}
	if event.IP == "" {
		return event, errors.New("download event has no ip")
	}
	if event.Time <= 0 {
		return event, errors.New("download event has no time")
	}
	return event, nil
}

func (a *Aggregator) fold(stats *models.DocumentStats, event models.DownloadEvent) {
	stats.Downloads++

	user, seen := stats.Users[event.IP]
	if !seen {
		user = models.UserStats{FirstDownload: event.Time, LatestDownload: event.Time}
	}
	user.Downloads++
	if event.Time < user.FirstDownload {
		user.FirstDownload = event.Time
	}
	if event.Time > user.LatestDownload {
		user.LatestDownload = event.Time
	}
	stats.Users[event.IP] = user

	t := time.Unix(event.Time, 0).In(a.loc)
	stats.Days[t.Format(dayLayout)]++
	stats.Hours[t.Hour()]++
}

// AllStats aggregates every registered document. UsersCount counts an IP
// once no matter how many documents it downloaded.
func (a *Aggregator) AllStats(ctx context.Context) (*models.GlobalStats, error) {
	start := time.Now()
	defer func() { metrics.RecordStats("all", time.Since(start)) }()

	documents, err := a.store.SMembers(ctx, db.DocumentsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read document registry: %w", err)
	}

	global := &models.GlobalStats{Documents: make(map[string]*models.DocumentStats, len(documents))}
	users := make(map[string]struct{})

	for _, document := range documents {
		stats, err := a.StatsFor(ctx, document)
		if err != nil {
			return nil, err
		}
		global.Documents[document] = stats
		global.Malformed += stats.Malformed
		for ip := range stats.Users {
			users[ip] = struct{}{}
		}
	}
	global.UsersCount = len(users)

	return global, nil
}
