package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: msg})
}

// writeBatchEmpty keeps the legacy /process body: a bare error string plus
// the skipped filenames.
func writeBatchEmpty(w http.ResponseWriter, skipped []types.SkippedFile) {
	names := make([]string, 0, len(skipped))
	for _, sk := range skipped {
		names = append(names, sk.Filename)
	}
	writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
		Error:        "No valid data processed",
		SkippedFiles: names,
		Skipped:      skipped,
	})
}
