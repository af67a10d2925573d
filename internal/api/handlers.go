package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vaultwatch/vaultwatch/internal/backup"
	"github.com/vaultwatch/vaultwatch/internal/catalog"
	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/validation"
)

// Handler serves the local dashboard's read and restore endpoints. It
// holds no state of its own beyond the progress tracker for in-flight
// restores and the latency window behind the performance endpoint;
// everything else is read straight from the catalog or driven through the
// pipeline on demand.
type Handler struct {
	Catalog  *catalog.Catalog
	Pipeline *backup.Pipeline
	Queue    *backup.Queue
	DeviceID string

	progress    *progressTracker
	upgrader    websocket.Upgrader
	performance *performanceMonitor
}

func NewHandler(cat *catalog.Catalog, pipeline *backup.Pipeline, queue *backup.Queue, deviceID string) *Handler {
	return &Handler{
		Catalog:  cat,
		Pipeline: pipeline,
		Queue:    queue,
		DeviceID: deviceID,
		progress: newProgressTracker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		performance: newPerformanceMonitor(1000, 2*time.Second),
	}
}

// Performance reports recent dashboard API latency percentiles per endpoint.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.performance.stats())
}

// Status reports whether a backup drain is currently running and how
// deep the queue is.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.Pipeline.Status(h.Queue))
}

// Stats reports aggregate storage figures for this device's catalog.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Catalog.StorageStatsFor(r.Context(), h.DeviceID)
	if err != nil {
		logging.Error().Err(err).Msg("storage stats query failed")
		NewResponseWriter(w, r).InternalError("failed to compute storage stats")
		return
	}
	NewResponseWriter(w, r).Success(stats)
}

// Versions lists every retained version of one file, newest first.
func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	q := VersionsQuery{FilePath: r.URL.Query().Get("file_path")}
	if verr := validation.ValidateStruct(&q); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	versions, err := h.Catalog.GetVersions(r.Context(), q.FilePath, h.DeviceID)
	if err != nil {
		logging.Error().Err(err).Str("file_path", q.FilePath).Msg("version lookup failed")
		NewResponseWriter(w, r).InternalError("failed to list versions")
		return
	}
	NewResponseWriter(w, r).SuccessWithMeta(versions, &APIMeta{Pagination: &PageMeta{Count: len(versions)}})
}

// Search finds files whose path matches query, most recently backed up first.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	q := SearchQuery{Query: r.URL.Query().Get("q"), Limit: limit}
	if verr := validation.ValidateStruct(&q); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}

	results, err := h.Catalog.Search(r.Context(), q.Query, h.DeviceID, q.Limit)
	if err != nil {
		logging.Error().Err(err).Str("query", q.Query).Msg("search failed")
		NewResponseWriter(w, r).InternalError("search failed")
		return
	}
	NewResponseWriter(w, r).SuccessWithMeta(results, &APIMeta{Pagination: &PageMeta{Count: len(results), Limit: q.Limit}})
}

// StartRestore begins restoring one catalog record to dest_path and
// returns immediately with a job ID; progress is polled via RestoreStatus
// or streamed via RestoreStream.
func (h *Handler) StartRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := decodeJSON(r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	jobID := logging.GenerateRequestID()
	state := h.progress.start(jobID, req.RecordID, req.DestPath)

	go func() {
		ctx := context.Background()
		err := h.Pipeline.RestoreByID(ctx, req.RecordID, req.DestPath, h.progress.callback(jobID))
		h.progress.finish(jobID, err)
	}()

	NewResponseWriter(w, r).Accepted(state)
}

// RestoreStatus reports the current progress of one previously started
// restore job.
func (h *Handler) RestoreStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	state, ok := h.progress.get(jobID)
	if !ok {
		NewResponseWriter(w, r).NotFound("restore job not found")
		return
	}
	NewResponseWriter(w, r).Success(state)
}

// RestoreStream upgrades to a websocket and pushes job state until the
// restore completes or the client disconnects.
func (h *Handler) RestoreStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, ok := h.progress.get(jobID); !ok {
		NewResponseWriter(w, r).NotFound("restore job not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := pollTicker()
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			state, ok := h.progress.get(jobID)
			if !ok {
				return
			}
			if err := conn.WriteJSON(state); err != nil {
				return
			}
			if state.Done {
				return
			}
		}
	}
}
