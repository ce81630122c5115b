// Package tracking records PDF downloads for statistics and analytics.
package tracking

import (
	"context"
	"time"

	"noteface-service/artifacts"
	"noteface-service/db"
	"noteface-service/logging"
	"noteface-service/metrics"
	"noteface-service/models"
	"noteface-service/queue"

	"github.com/goccy/go-json"
)

type Emitter struct {
	store     db.Store
	queue     queue.Queue
	artifacts artifacts.Store
	now       func() time.Time
}

func NewEmitter(store db.Store, q queue.Queue, a artifacts.Store) *Emitter {
	return &Emitter{
		store:     store,
		queue:     q,
		artifacts: a,
		now:       time.Now,
	}
}

// RecordDownload appends a download event to the document's log and queues
// an analytics event, unless the requester is exempt. The two writes are
// independent; failures are logged and never block the download.
// It reports whether the artifact exists and can be served.
func (e *Emitter) RecordDownload(ctx context.Context, userID, document, sha string, meta models.RequestMeta, exempt bool) bool {
	if sha == "" {
		return false
	}

	if exempt {
		metrics.DownloadsExempt.Inc()
	} else {
		event := models.DownloadEvent{
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Time:      e.now().Unix(),
			SHA:       sha,
		}
		e.appendEvent(ctx, document, event)
		e.enqueueAnalytics(ctx, userID, document, event, meta)
	}

	exists, err := e.artifacts.Exists(ctx, document, sha)
	if err != nil {
		logging.Error().Err(err).
			Str("document", document).
			Str("sha", sha).
			Msg("Failed to check artifact")
		return false
	}
	return exists
}

func (e *Emitter) appendEvent(ctx context.Context, document string, event models.DownloadEvent) {
	data, err := json.Marshal(event)
	if err == nil {
		err = e.store.SAdd(ctx, db.DownloadsKey(document), string(data))
	}
	if err != nil {
		metrics.TrackingWriteFailures.WithLabelValues("store").Inc()
		logging.Error().Err(err).
			Str("document", document).
			Msg("Failed to record download")
		return
	}
	metrics.DownloadsRecorded.Inc()
}

func (e *Emitter) enqueueAnalytics(ctx context.Context, userID, document string, event models.DownloadEvent, meta models.RequestMeta) {
	analytics := models.AnalyticsEvent{
		UserID:    userID,
		UserInfo:  event,
		EventName: models.DownloadedFileEvent,
		Properties: models.AnalyticsProperties{
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
			Document:   document,
			SHA:        event.SHA,
			ReferredBy: meta.Referer,
		},
	}

	err := e.queue.Enqueue(ctx, models.AnalyticsJobType, analytics.Args()...)
	metrics.RecordEnqueue(models.AnalyticsJobType, err)
	if err != nil {
		metrics.TrackingWriteFailures.WithLabelValues("queue").Inc()
		logging.Error().Err(err).
			Str("document", document).
			Str("user_id", userID).
			Msg("Failed to queue analytics event")
	}
}
