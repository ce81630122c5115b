package models

import (
	"encoding/json"
	"errors"
)

// Job types understood by the external workers
const (
	CompilationJobType = "CompilationJob"
	AnalyticsJobType   = "MixpanelTrackingEvent"
)

// DownloadedFileEvent is the analytics event name for a PDF download
const DownloadedFileEvent = "Downloaded File"

// PushEvent is the subset of a push webhook delivery the dispatcher cares about.
// HeadCommit and Repository are passed through to the compilation worker untouched.
type PushEvent struct {
	Ref        string          `json:"ref"`
	After      string          `json:"after"`
	HeadCommit json.RawMessage `json:"head_commit"`
	Repository json.RawMessage `json:"repository"`
	Commits    []Commit        `json:"commits"`
}

// Commit lists the paths touched by one pushed commit
type Commit struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
}

// CompilationJob asks the compilation worker to build one source file
type CompilationJob struct {
	File       string          `json:"file"`
	HeadCommit json.RawMessage `json:"head_commit"`
	Repository json.RawMessage `json:"repository"`
}

// Args returns the positional job arguments in worker order
func (j CompilationJob) Args() []any {
	return []any{j.File, j.HeadCommit, j.Repository}
}

// DownloadEvent is one member of a document's download log
type DownloadEvent struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Time      int64  `json:"time"`
	SHA       string `json:"sha"`
}

// AnalyticsProperties are forwarded verbatim to the analytics service
type AnalyticsProperties struct {
	IP         string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	Document   string `json:"document"`
	SHA        string `json:"sha"`
	ReferredBy string `json:"referred_by"`
}

// AnalyticsEvent is queued for the analytics-ingestion worker
type AnalyticsEvent struct {
	UserID     string              `json:"user_id"`
	UserInfo   DownloadEvent       `json:"user_info"`
	EventName  string              `json:"event_name"`
	Properties AnalyticsProperties `json:"properties"`
}

// Args returns the positional job arguments in worker order
func (e AnalyticsEvent) Args() []any {
	return []any{e.UserID, e.UserInfo, e.EventName, e.Properties}
}

// RequestMeta carries the request details a download event is built from
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
}

// UserStats summarises one IP's downloads of a single document
type UserStats struct {
	Downloads      int64 `json:"downloads"`
	FirstDownload  int64 `json:"first_download"`
	LatestDownload int64 `json:"latest_download"`
}

// DocumentStats is the rollup of one document's download log
type DocumentStats struct {
	Name      string               `json:"name"`
	Downloads int64                `json:"downloads"`
	Users     map[string]UserStats `json:"users"`
	Days      map[string]int64     `json:"days"`
	Hours     map[int]int64        `json:"hours"`
	Malformed int64                `json:"malformed"`
}

// NewDocumentStats returns empty stats with all maps allocated
func NewDocumentStats(name string) *DocumentStats {
	return &DocumentStats{
		Name:  name,
		Users: make(map[string]UserStats),
		Days:  make(map[string]int64),
		Hours: make(map[int]int64),
	}
}

// GlobalStats merges every registered document's stats
type GlobalStats struct {
	Documents  map[string]*DocumentStats `json:"documents"`
	UsersCount int                       `json:"users_count"`
	Malformed  int64                     `json:"malformed"`
}

// Course is the course metadata attached to a document
type Course struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
	Term *string `json:"term"`
}

// DocumentInfo is one entry of the public document catalog
type DocumentInfo struct {
	Course    Course  `json:"course"`
	SHA       *string `json:"sha"`
	Timestamp *string `json:"timestamp"`
}

// Error types
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
