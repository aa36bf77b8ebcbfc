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

type pushupsRepo interface {
	Add(ctx context.Context, entry PushupEntry) (*PushupEntry, error)
	ListAll(ctx context.Context, userID int) ([]PushupEntry, error)
	Delete(ctx context.Context, userID, id int) error
}

type DeleteEntryResponse struct {
	Success bool `json:"success"`
}

type addPushupRequest struct {
	Count int        `json:"count"`
	Date  *time.Time `json:"date"`
}

type PushupsHandler struct {
	repo           pushupsRepo
	analyzer       *Analyzer
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewPushupsHandler(
	repo pushupsRepo,
	analyzer *Analyzer,
	metricsManager *metrics.Manager,
) *PushupsHandler {
	return &PushupsHandler{
		repo:           repo,
		analyzer:       analyzer,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (handler *PushupsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.pushups.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pushupEntries, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list pushup entries for user %d: %s", userID, err)
		http.Error(w, "failed to get pushup entries", http.StatusInternalServerError)
		return
	}

	entriesJson, err := json.Marshal(pushupEntries)
	if err != nil {
		log.Errorf("marshal pushup entries: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entriesJson, http.StatusOK)
}

func (handler *PushupsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.pushups.new")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addPushupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new pushup entry, unmarshal json params: %s", err)
		http.Error(w, "add pushup entry failed", http.StatusBadRequest)
		return
	}

	entry := PushupEntry{
		UserID:    userID,
		Count:     req.Count,
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
		log.Errorf("failed to add pushup entry for user %d: %s", userID, err)
		http.Error(w, "error, failed to add pushup entry", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterEntriesAdded.WithLabelValues("pushups").Inc()
	handler.analyzer.InvalidateUser(userID)

	addedEntryJson, err := json.Marshal(addedEntry)
	if err != nil {
		log.Errorf("failed to marshal added pushup entry: %s", err)
		http.Error(w, "error, failed to add pushup entry", http.StatusInternalServerError)
		return
	}

	log.Debugf("new pushup entry added: %s", addedEntryJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedEntryJson, http.StatusOK)
}

func (handler *PushupsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.pushups.delete")
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
		log.Errorf("failed to delete pushup entry %d: %s", id, err)
		http.Error(w, "pushup entry not deleted", http.StatusInternalServerError)
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

func (handler *PushupsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.pushups.stats")
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

	points, err := handler.analyzer.PushupStats(ctx, userID, period)
	if err != nil {
		log.Errorf("failed to get pushup stats for user %d: %s", userID, err)
		http.Error(w, "failed to get pushup stats", http.StatusInternalServerError)
		return
	}

	pointsJson, err := json.Marshal(points)
	if err != nil {
		log.Errorf("failed to marshal pushup stats: %s", err)
		http.Error(w, "failed to marshal pushup stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, pointsJson, http.StatusOK)
}
