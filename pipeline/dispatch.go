// Package pipeline turns push webhook deliveries into compilation jobs.
package pipeline

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"noteface-service/logging"
	"noteface-service/metrics"
	"noteface-service/models"
	"noteface-service/queue"
)

// ErrUnauthorized is returned when the delivery secret does not match
var ErrUnauthorized = errors.New("invalid push secret")

type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored means the push was for a branch that is not built
	OutcomeIgnored Outcome = "ignored"
)

// Result describes what a delivery produced
type Result struct {
	Outcome  Outcome  `json:"outcome"`
	Enqueued int      `json:"enqueued"`
	Files    []string `json:"files"`
	Commit   string   `json:"commit,omitempty"`
}

// Config holds dispatcher configuration
type Config struct {
	Secret    string
	BranchRef string
	Extension string
}

type Dispatcher struct {
	secret    string
	branchRef string
	extension string
	queue     queue.Queue
}

func NewDispatcher(cfg Config, q queue.Queue) *Dispatcher {
	if cfg.BranchRef == "" {
		cfg.BranchRef = "refs/heads/master"
	}
	if cfg.Extension == "" {
		cfg.Extension = ".tex"
	}
	return &Dispatcher{
		secret:    cfg.Secret,
		branchRef: cfg.BranchRef,
		extension: cfg.Extension,
		queue:     q,
	}
}

// Authorized compares the presented secret in constant time
func (d *Dispatcher) Authorized(secret string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(d.secret)) == 1
}

// Dispatch enqueues one CompilationJob per source file touched by the push.
// Jobs enqueued before a queue failure stay enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, secret string, event *models.PushEvent) (Result, error) {
	if !d.Authorized(secret) {
		return Result{}, ErrUnauthorized
	}
	if event == nil {
		return Result{}, &models.ValidationError{Message: "push event is required"}
	}

	if event.Ref != d.branchRef {
		logging.Info().
			Str("ref", event.Ref).
			Str("commit", event.After).
			Msg("Ignoring push to unbuilt branch")
		return Result{Outcome: OutcomeIgnored, Commit: event.After}, nil
	}

	files := SelectFiles(event.Commits, d.extension)
	result := Result{Outcome: OutcomeAccepted, Files: files, Commit: event.After}

	for _, file := range files {
		job := models.CompilationJob{
			File:       file,
			HeadCommit: event.HeadCommit,
			Repository: event.Repository,
		}
		err := d.queue.Enqueue(ctx, models.CompilationJobType, job.Args()...)
		metrics.RecordEnqueue(models.CompilationJobType, err)
		if err != nil {
			return result, fmt.Errorf("failed to queue %s: %w", file, err)
		}
		result.Enqueued++

		logging.Info().
			Str("file", file).
			Str("commit", event.After).
			Msg("Queued file for compilation")
	}

	return result, nil
}

// SelectFiles returns the added then modified paths of every commit, in
// order, without duplicates, keeping only those ending in extension.
func SelectFiles(commits []models.Commit, extension string) []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)

	keep := func(paths []string) {
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if strings.HasSuffix(p, extension) {
				files = append(files, p)
			}
		}
	}

	for _, c := range commits {
		keep(c.Added)
		keep(c.Modified)
	}
	return files
}
