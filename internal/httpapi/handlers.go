package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jvanhook93/Kastle-script/internal/kastle/report"
	"github.com/jvanhook93/Kastle-script/internal/kastle/service"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.PingResponse{Status: "ok", Message: "Kastle reconciler is alive!"})
}

// handleProcess is the legacy upload endpoint: it returns the workbook as an
// attachment and keeps the original plain error bodies.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	outputName, files, err := s.readUploads(w, r)
	if err != nil {
		s.uploadError(w, err, true)
		return
	}

	rep, err := s.batch.Process(r.Context(), outputName, files)
	if err != nil {
		s.batchError(w, err, true)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rep); err != nil {
		s.logger.Error("render workbook", zap.String("run_id", rep.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	if s.outputDir != "" {
		if err := saveCopy(s.outputDir, rep.OutputName, buf.Bytes()); err != nil {
			s.logger.Warn("save workbook copy", zap.String("run_id", rep.RunID), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.OutputName}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Kastle-Run-Id", rep.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleReconcile returns the batch report itself, as JSON or as a
// google.protobuf.Struct.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	outputName, files, err := s.readUploads(w, r)
	if err != nil {
		s.uploadError(w, err, false)
		return
	}

	rep, err := s.batch.Process(r.Context(), outputName, files)
	if err != nil {
		s.batchError(w, err, false)
		return
	}

	if wantsProtobuf(r) {
		st, err := toStruct(rep)
		if err != nil {
			s.logger.Error("report to struct", zap.String("run_id", rep.RunID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, st)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.batch.Runs(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	resp := types.RunsResponse{Runs: make([]types.RunResponse, 0, len(runs))}
	for _, rec := range runs {
		resp.Runs = append(resp.Runs, runToResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) uploadError(w http.ResponseWriter, err error, legacy bool) {
	switch {
	case errors.Is(err, errNoFiles):
		if legacy {
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "No files uploaded"})
			return
		}
		writeError(w, http.StatusBadRequest, "no_files", "no files uploaded")
	case errors.Is(err, errTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
	default:
		s.logger.Info("bad upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad_upload", err.Error())
	}
}

func (s *Server) batchError(w http.ResponseWriter, err error, legacy bool) {
	var empty *service.BatchEmptyError
	switch {
	case errors.As(err, &empty):
		if legacy {
			writeBatchEmpty(w, empty.Skipped)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, types.ErrorResponse{
			Error:   "batch_empty",
			Message: empty.Error(),
			Skipped: empty.Skipped,
		})
	case errors.Is(err, service.ErrNoFiles):
		writeError(w, http.StatusBadRequest, "no_files", err.Error())
	default:
		s.logger.Error("process batch", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func saveCopy(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func runToResponse(rec store.RunRecord) types.RunResponse {
	return types.RunResponse{
		ID:               rec.ID,
		CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339),
		OutputName:       rec.OutputName,
		FilesTotal:       rec.FilesTotal,
		FilesSkipped:     rec.FilesSkipped,
		SessionCount:     rec.SessionCount,
		DiscrepancyCount: rec.DiscrepancyCount,
		SkippedFiles:     rec.Skipped,
	}
}
