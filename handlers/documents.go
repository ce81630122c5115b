package handlers

import (
	"net/http"

	"noteface-service/catalog"
)

// Documents handles GET /documents.json - the public document catalog
func Documents(cat *catalog.Catalog, fail failer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documents, err := cat.Documents(r.Context())
		if err != nil {
			fail.internal(w, r, err)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		writeJSON(w, http.StatusOK, documents)
	}
}
