package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"neurotwin-backend/application/ports"
	"neurotwin-backend/application/viewstate"
	"neurotwin-backend/domain/clinical"
	"neurotwin-backend/domain/config"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// requestSequenceHeader carries the caller's monotonically increasing
// fetch sequence. Older sequence numbers lose to newer ones.
const requestSequenceHeader = "X-Graph-Request-Sequence"

// VisualizationHandler exposes the coordinator over HTTP. The
// coordinator itself is single-threaded, so the handler serializes
// every call with a mutex. Each ingest carries a monotonically
// increasing request id, which is how the coordinator rejects results
// of fetches that were overtaken by a newer one.
type VisualizationHandler struct {
	coordinator *viewstate.Coordinator
	snapshots   ports.SnapshotStore
	cfg         *config.DomainConfig
	validate    *validator.Validate
	logger      *zap.Logger
	requestSeq  atomic.Uint64
	mu          sync.Mutex
}

// NewVisualizationHandler creates the handler. The snapshot store may
// be nil when persistence is disabled.
func NewVisualizationHandler(
	coordinator *viewstate.Coordinator,
	snapshots ports.SnapshotStore,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *VisualizationHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &VisualizationHandler{
		coordinator: coordinator,
		snapshots:   snapshots,
		cfg:         cfg,
		validate:    newPayloadValidator(),
		logger:      logger,
	}
}

// Routes mounts the visualization endpoints
func (h *VisualizationHandler) Routes(r chi.Router) {
	r.Post("/graphs", h.ingestGraph)
	r.Get("/render-state", h.renderState)
	r.Post("/regions/{regionID}/activity", h.applyActivityDelta)
	r.Post("/activity", h.applyActivityBatch)
	r.Post("/regions/{regionID}/toggle", h.toggleRegion)
	r.Post("/selection", h.selectRegions)
	r.Delete("/selection", h.deselectRegions)
	r.Put("/highlights", h.replaceHighlights)
	r.Delete("/highlights", h.clearHighlights)
	r.Put("/detail", h.setDetailOverride)
	r.Post("/performance-warning", h.performanceWarning)
	r.Put("/clinical-context", h.setClinicalContext)
}

// ApplyLODSettings pushes reloaded visualization settings into the
// level-of-detail policy, serialized against in-flight requests.
func (h *VisualizationHandler) ApplyLODSettings(deviceClass, mode, forcedTier string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	lod := h.coordinator.LOD()
	if err := lod.SetDeviceClass(viewstate.DeviceClass(deviceClass)); err != nil {
		return err
	}
	if err := lod.SetMode(viewstate.LODMode(mode)); err != nil {
		return err
	}
	if mode == string(viewstate.LODModeManual) && forcedTier != "" {
		return lod.ForceTier(viewstate.DetailTier(forcedTier))
	}
	return nil
}

// RestoreLatestSnapshot replays the newest stored graph for a patient
// into the coordinator, used at startup to rehydrate a session.
func (h *VisualizationHandler) RestoreLatestSnapshot(ctx context.Context, patientID string) error {
	if h.snapshots == nil {
		return nil
	}

	snapshot, err := h.snapshots.Latest(ctx, patientID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	var payload GraphPayload
	if err := json.Unmarshal(snapshot.Payload, &payload); err != nil {
		return pkgerrors.NewInternalError("stored snapshot is not a valid graph payload", err)
	}

	graph, err := payload.ToDomain(h.cfg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	err = h.coordinator.IngestGraph(h.requestSeq.Add(1), graph)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	h.logger.Info("Restored graph snapshot",
		zap.String("patientID", patientID),
		zap.String("graphID", snapshot.GraphID),
	)
	return nil
}

func (h *VisualizationHandler) ingestGraph(w http.ResponseWriter, r *http.Request) {
	raw, payload, err := h.decodeGraphPayload(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	graph, err := payload.ToDomain(h.cfg)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	requestID, err := h.nextRequestID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.mu.Lock()
	ingestErr := h.coordinator.IngestGraph(requestID, graph)
	current := h.coordinator.Graph()
	h.mu.Unlock()
	if ingestErr != nil {
		respondError(w, h.logger, ingestErr)
		return
	}

	if current != graph {
		// An ingest with a newer sequence number already landed.
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"requestId": requestID,
			"discarded": true,
		})
		return
	}

	if h.snapshots != nil && payload.PatientID != "" {
		snapshot := ports.GraphSnapshot{
			PatientID: payload.PatientID,
			GraphID:   graph.ID().String(),
			RequestID: requestID,
			Payload:   raw,
		}
		if payload.CapturedAt != nil {
			snapshot.CapturedAt = *payload.CapturedAt
		}
		if err := h.snapshots.Save(r.Context(), snapshot); err != nil {
			// Persistence is best-effort; the session already holds the graph.
			h.logger.Warn("Failed to persist graph snapshot", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"graphId":     graph.ID().String(),
		"requestId":   requestID,
		"regions":     graph.RegionCount(),
		"connections": graph.ConnectionCount(),
	})
}

// nextRequestID prefers the caller's sequence header so an out-of-order
// delivery of an older fetch result is detectable; without the header
// each ingest gets the next server-side sequence number.
func (h *VisualizationHandler) nextRequestID(r *http.Request) (uint64, error) {
	raw := r.Header.Get(requestSequenceHeader)
	if raw == "" {
		return h.requestSeq.Add(1), nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.NewFieldValidationError(requestSequenceHeader, "must be an unsigned integer")
	}

	// Keep the fallback counter ahead of explicit sequence numbers.
	for {
		cur := h.requestSeq.Load()
		if cur >= id || h.requestSeq.CompareAndSwap(cur, id) {
			return id, nil
		}
	}
}

func (h *VisualizationHandler) decodeGraphPayload(r *http.Request) (json.RawMessage, GraphPayload, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, GraphPayload{}, pkgerrors.NewGraphValidationError("request body is not valid JSON")
	}

	var payload GraphPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, GraphPayload{}, pkgerrors.NewGraphValidationError("payload does not match the graph schema: " + err.Error())
	}

	if err := h.validate.Struct(payload); err != nil {
		return nil, GraphPayload{}, validationError("graph payload", err)
	}

	return raw, payload, nil
}

func (h *VisualizationHandler) renderState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	state, err := h.coordinator.GetRenderState()
	h.mu.Unlock()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

type activityDeltaRequest struct {
	Level float64 `json:"level"`
}

func (h *VisualizationHandler) applyActivityDelta(w http.ResponseWriter, r *http.Request) {
	regionID := chi.URLParam(r, "regionID")

	var req activityDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.coordinator.ApplyActivityDelta(regionID, req.Level); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type activityBatchRequest struct {
	Deltas map[string]float64 `json:"deltas"`
}

func (h *VisualizationHandler) applyActivityBatch(w http.ResponseWriter, r *http.Request) {
	var req activityBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.coordinator.ApplyActivityDeltas(req.Deltas); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *VisualizationHandler) toggleRegion(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.coordinator.ToggleRegionActive(chi.URLParam(r, "regionID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type selectionRequest struct {
	RegionIDs []string `json:"regionIds"`
}

func (h *VisualizationHandler) selectRegions(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}
	h.mu.Lock()
	h.coordinator.Select(req.RegionIDs...)
	selection := h.coordinator.Selection()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, selection)
}

func (h *VisualizationHandler) deselectRegions(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}
	h.mu.Lock()
	h.coordinator.Deselect(req.RegionIDs...)
	selection := h.coordinator.Selection()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, selection)
}

func (h *VisualizationHandler) replaceHighlights(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}
	h.mu.Lock()
	h.coordinator.Highlight(req.RegionIDs...)
	selection := h.coordinator.Selection()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, selection)
}

func (h *VisualizationHandler) clearHighlights(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.coordinator.ClearHighlights()
	selection := h.coordinator.Selection()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, selection)
}

type detailOverrideRequest struct {
	Tier *string `json:"tier"`
}

func (h *VisualizationHandler) setDetailOverride(w http.ResponseWriter, r *http.Request) {
	var req detailOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}

	var tier *viewstate.DetailTier
	if req.Tier != nil {
		t := viewstate.DetailTier(*req.Tier)
		tier = &t
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.coordinator.SetDetailOverride(tier); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *VisualizationHandler) performanceWarning(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.coordinator.ReportPerformanceWarning()
	h.mu.Unlock()
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *VisualizationHandler) setClinicalContext(w http.ResponseWriter, r *http.Request) {
	var payload clinical.ContextPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, h.logger, pkgerrors.NewGraphValidationError("request body is not valid JSON"))
		return
	}

	ctx, skipped := clinical.ParseContext(payload)
	h.mu.Lock()
	h.coordinator.SetClinicalContext(ctx, skipped)
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symptomMappings":   len(ctx.SymptomMappings),
		"diagnosisMappings": len(ctx.DiagnosisMappings),
		"treatmentEffects":  len(ctx.TreatmentEffects),
		"skippedEntries":    len(skipped),
	})
}
