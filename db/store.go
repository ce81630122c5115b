package db

import (
	"context"
	"fmt"
	"noteface-service/models"
)

// Store is the key/value + named set contract shared with the compilation
// and analytics workers. Get returns a *models.NotFoundError for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Key names written by other processes; changing them breaks the workers.
const DocumentsKey = "documents"

func LatestKey(document string) string {
	return document + ":latest"
}

func TimestampKey(sha string) string {
	return sha + ":timestamp"
}

func DownloadsKey(document string) string {
	return document + ":downloads"
}

// CourseKey builds document:course:<field> for code, name and term
func CourseKey(document, field string) string {
	return document + ":course:" + field
}

func keyNotFound(key string) error {
	return &models.NotFoundError{Message: fmt.Sprintf("key not found: %s", key)}
}

// GetOptional returns nil instead of an error when key is missing
func GetOptional(ctx context.Context, s Store, key string) (*string, error) {
	val, err := s.Get(ctx, key)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &val, nil
}
