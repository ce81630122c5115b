// Package artifacts locates compiled PDFs by document name and commit sha.
package artifacts

import (
	"context"
	"io"
	"path"
)

// Store is read-only access to compiled documents
type Store interface {
	// Exists reports whether the PDF for document at sha has been built
	Exists(ctx context.Context, document, sha string) (bool, error)
	// Open returns the PDF bytes; a missing artifact is a *models.NotFoundError
	Open(ctx context.Context, document, sha string) (io.ReadCloser, error)
}

// ObjectPath is the artifact location relative to the store root:
// <document>/<sha>/<document>.pdf
func ObjectPath(document, sha string) string {
	return path.Join(document, sha, document+".pdf")
}
