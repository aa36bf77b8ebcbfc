package entries

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

type walksRepo interface {
	Add(ctx context.Context, entry WalkEntry) (*WalkEntry, error)
	ListAll(ctx context.Context, userID int) ([]WalkEntry, error)
	Delete(ctx context.Context, userID, id int) error
}

type addWalkRequest struct {
	Miles float64    `json:"miles"`
	Date  *time.Time `json:"date"`
}

type WalksHandler struct {
	repo           walksRepo
	analyzer       *Analyzer
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewWalksHandler(
	repo walksRepo,
	analyzer *Analyzer,
	metricsManager *metrics.Manager,
) *WalksHandler {
	return &WalksHandler{
		repo:           repo,
		analyzer:       analyzer,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (handler *WalksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.walks.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	walkEntries, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list walk entries for user %d: %s", userID, err)
		http.Error(w, "failed to get walk entries", http.StatusInternalServerError)
		return
	}

	entriesJson, err := json.Marshal(walkEntries)
	if err != nil {
		log.Errorf("marshal walk entries: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entriesJson, http.StatusOK)
}

func (handler *WalksHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.walks.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addWalkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new walk entry, unmarshal json params: %s", err)
		http.Error(w, "add walk entry failed", http.StatusBadRequest)
		return
	}

	entry := WalkEntry{
		UserID:    userID,
		Miles:     req.Miles,
		CreatedAt: handler.now(),
	}
	if req.Date != nil {
		entry.CreatedAt = *req.Date
	}

	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedEntry, err := handler.repo.Add(ctx, entry)
	if err != nil {
		log.Errorf("failed to add walk entry for user %d: %s", userID, err)
		http.Error(w, "error, failed to add walk entry", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterEntriesAdded.WithLabelValues("walks").Inc()
	handler.analyzer.InvalidateUser(userID)

	addedEntryJson, err := json.Marshal(addedEntry)
	if err != nil {
		log.Errorf("failed to marshal added walk entry: %s", err)
		http.Error(w, "error, failed to add walk entry", http.StatusInternalServerError)
		return
	}

	log.Debugf("new walk entry added: %s", addedEntryJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedEntryJson, http.StatusOK)
}

func (handler *WalksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.walks.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	// the delete is scoped to the user, foreign and missing ids fall through
	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		log.Errorf("failed to delete walk entry %d: %s", id, err)
		http.Error(w, "walk entry not deleted", http.StatusInternalServerError)
		return
	}

	handler.analyzer.InvalidateUser(userID)

	deleteRespJson, err := json.Marshal(DeleteEntryResponse{Success: true})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *WalksHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.walks.stats")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	period, err := ParsePeriod(mux.Vars(r)["period"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := handler.analyzer.WalkStats(ctx, userID, period)
	if err != nil {
		log.Errorf("failed to get walk stats for user %d: %s", userID, err)
		http.Error(w, "failed to get walk stats", http.StatusInternalServerError)
		return
	}

	pointsJson, err := json.Marshal(points)
	if err != nil {
		log.Errorf("failed to marshal walk stats: %s", err)
		http.Error(w, "failed to marshal walk stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, pointsJson, http.StatusOK)
}
