package handlers

import (
	"net/http"

	"noteface-service/stats"
	"noteface-service/utils"
)

// Stats handles GET /dash/stats.json. With ?document=name only that
// document is aggregated.
func Stats(agg *stats.Aggregator, fail failer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if document := r.URL.Query().Get("document"); document != "" {
			if !utils.IsSafeName(document) {
				writeError(w, http.StatusBadRequest, "Invalid document name")
				return
			}
			result, err := agg.StatsFor(ctx, document)
			if err != nil {
				fail.internal(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		result, err := agg.AllStats(ctx)
		if err != nil {
			fail.internal(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
