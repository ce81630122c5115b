// Package catalog reads the document metadata the compilation worker publishes.
package catalog

import (
	"context"
	"fmt"

	"noteface-service/db"
	"noteface-service/models"
)

type Catalog struct {
	store db.Store
}

func New(store db.Store) *Catalog {
	return &Catalog{store: store}
}

// LatestSHA resolves the latest built version of a document.
// A document that was never built returns "" and no error.
func (c *Catalog) LatestSHA(ctx context.Context, document string) (string, error) {
	sha, err := db.GetOptional(ctx, c.store, db.LatestKey(document))
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest %s: %w", document, err)
	}
	if sha == nil {
		return "", nil
	}
	return *sha, nil
}

// Documents returns every registered document keyed by name. Missing
// metadata is left nil so it serializes as null.
func (c *Catalog) Documents(ctx context.Context) (map[string]models.DocumentInfo, error) {
	names, err := c.store.SMembers(ctx, db.DocumentsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read document registry: %w", err)
	}

	documents := make(map[string]models.DocumentInfo, len(names))
	for _, name := range names {
		info, err := c.document(ctx, name)
		if err != nil {
			return nil, err
		}
		documents[name] = info
	}
	return documents, nil
}

func (c *Catalog) document(ctx context.Context, name string) (models.DocumentInfo, error) {
	var info models.DocumentInfo
	var err error

	get := func(key string) *string {
		if err != nil {
			return nil
		}
		var v *string
		v, err = db.GetOptional(ctx, c.store, key)
		return v
	}

	info.SHA = get(db.LatestKey(name))
	if info.SHA != nil {
		info.Timestamp = get(db.TimestampKey(*info.SHA))
	}
	info.Course.Code = get(db.CourseKey(name, "code"))
	info.Course.Name = get(db.CourseKey(name, "name"))
	info.Course.Term = get(db.CourseKey(name, "term"))

	if err != nil {
		return models.DocumentInfo{}, fmt.Errorf("failed to read metadata of %s: %w", name, err)
	}
	return info, nil
}
