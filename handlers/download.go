package handlers

import (
	"io"
	"net/http"
	"strings"

	"noteface-service/artifacts"
	"noteface-service/catalog"
	"noteface-service/logging"
	"noteface-service/middleware"
	"noteface-service/models"
	"noteface-service/tracking"
	"noteface-service/utils"

	"github.com/go-chi/chi/v5"
)

const latestVersion = "latest"

// Download handles GET /dl/latest/{file} and GET /dl/{sha}/{file}, where
// file is <document>.pdf. Unauthorized downloads are tracked.
func Download(cat *catalog.Catalog, emitter *tracking.Emitter, store artifacts.Store, auth *middleware.Authenticator, fail failer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		document, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".pdf")
		if !ok || !utils.IsSafeName(document) {
			fail.notFound(w, r)
			return
		}

		sha := chi.URLParam(r, "sha")
		if sha == "" || sha == latestVersion {
			latest, err := cat.LatestSHA(ctx, document)
			if err != nil {
				fail.internal(w, r, err)
				return
			}
			sha = latest
		}
		if sha != "" && !utils.IsSafeName(sha) {
			fail.notFound(w, r)
			return
		}

		meta := models.RequestMeta{
			IP:        utils.ExtractIP(r),
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
		}
		served := emitter.RecordDownload(ctx, middleware.SessionID(ctx), document, sha, meta, auth.Authorized(r))
		if !served {
			fail.notFound(w, r)
			return
		}

		rc, err := store.Open(ctx, document, sha)
		if err != nil {
			if models.IsNotFound(err) {
				fail.notFound(w, r)
				return
			}
			fail.internal(w, r, err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("ETag", `"`+sha+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			logging.Warn().Err(err).
				Str("document", document).
				Str("sha", sha).
				Msg("Download interrupted")
		}
	}
}
