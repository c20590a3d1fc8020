package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"suggestguard/models"
	"suggestguard/services"
	"suggestguard/storage"
	"suggestguard/utils"
)

type handler struct {
	store     storage.Store
	campaigns CampaignReporter
	logger    *utils.Logger
}

// healthResponse is the body of GET /brands/{id}/health.
type healthResponse struct {
	BrandID     string                 `json:"brand_id"`
	SnapshotID  string                 `json:"snapshot_id"`
	TakenAt     time.Time              `json:"taken_at"`
	HealthScore int                    `json:"health_score"`
	Summary     models.SnapshotSummary `json:"summary"`
}

func (h *handler) listBrands(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	brands, err := h.store.ListBrands(r.Context(), activeOnly)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list brands", err)
		return
	}
	if brands == nil {
		brands = []*models.Brand{}
	}
	respondWithJSON(w, http.StatusOK, brands)
}

func (h *handler) getBrand(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.LoadBrand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storageError(w, "Brand not found", err)
		return
	}
	respondWithJSON(w, http.StatusOK, b)
}

// listSnapshots returns summaries, not suggestion lists. from and to are
// optional RFC 3339 bounds.
func (h *handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid from parameter", err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid to parameter", err)
		return
	}

	snaps, err := h.store.ListSnapshots(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}
	out := make([]models.SnapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, services.Summarize(s))
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *handler) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LatestSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storageError(w, "No snapshot for brand", err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LoadSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storageError(w, "Snapshot not found", err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// trends diffs the latest snapshot against the one before it, or against
// the snapshot at ?since= when given.
func (h *handler) trends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brandID := chi.URLParam(r, "id")

	current, err := h.store.LatestSnapshot(ctx, brandID)
	if err != nil {
		h.storageError(w, "No snapshot for brand", err)
		return
	}

	var previous *models.Snapshot
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := parseTime(since)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid since parameter", err)
			return
		}
		previous, err = h.store.SnapshotAt(ctx, brandID, t)
		if err != nil {
			h.storageError(w, "No snapshot before since", err)
			return
		}
	} else {
		snaps, err := h.store.ListSnapshots(ctx, brandID, time.Time{}, current.TakenAt)
		if err != nil {
			h.respondWithError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
			return
		}
		for i := len(snaps) - 1; i >= 0; i-- {
			if snaps[i].ID != current.ID {
				previous = snaps[i]
				break
			}
		}
	}

	respondWithJSON(w, http.StatusOK, services.Diff(previous, current))
}

// suggestionHistory returns the rank of ?text= in every snapshot it appeared in.
func (h *handler) suggestionHistory(w http.ResponseWriter, r *http.Request) {
	text := utils.NormalizeText(r.URL.Query().Get("text"))
	if text == "" {
		h.respondWithError(w, http.StatusBadRequest, "Missing text parameter", nil)
		return
	}
	history, err := h.store.SuggestionHistory(r.Context(), chi.URLParam(r, "id"), text)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to load suggestion history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "id")
	snap, err := h.store.LatestSnapshot(r.Context(), brandID)
	if err != nil {
		h.storageError(w, "No snapshot for brand", err)
		return
	}
	sum := services.Summarize(snap)
	respondWithJSON(w, http.StatusOK, healthResponse{
		BrandID:     brandID,
		SnapshotID:  snap.ID,
		TakenAt:     snap.TakenAt,
		HealthScore: sum.HealthScore,
		Summary:     sum,
	})
}

func (h *handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	list, err := h.store.ListCampaigns(r.Context(), chi.URLParam(r, "id"), includeArchived)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list campaigns", err)
		return
	}
	if list == nil {
		list = []*models.Campaign{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *handler) campaignReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.campaigns.Report(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, services.ErrInsufficientData):
		h.respondWithError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, storage.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "Campaign not found", nil)
	case err != nil:
		h.respondWithError(w, http.StatusInternalServerError, "Failed to build campaign report", err)
	default:
		respondWithJSON(w, http.StatusOK, report)
	}
}

func (h *handler) storageError(w http.ResponseWriter, notFound string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.respondWithError(w, http.StatusNotFound, notFound, nil)
		return
	}
	h.respondWithError(w, http.StatusInternalServerError, "Storage error", err)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *handler) respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		h.logger.Error("[api] %s: %v", message, err)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}
