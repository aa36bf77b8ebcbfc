package prefs

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=prefs

type prefsStore interface {
	GetAutoSync(ctx context.Context, userID int) (bool, error)
	SetAutoSync(ctx context.Context, userID int, autoSync bool) error
}

type AutoSyncResponse struct {
	AutoSync bool `json:"autoSync"`
}

type SetAutoSyncResponse struct {
	Success bool `json:"success"`
}

type Handler struct {
	store prefsStore
}

func NewHandler(store prefsStore) *Handler {
	return &Handler{
		store: store,
	}
}

func (handler *Handler) HandleGetAutoSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.autosync.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	autoSync, err := handler.store.GetAutoSync(ctx, userID)
	if err != nil {
		log.Errorf("failed to get auto-sync flag for user %d: %s", userID, err)
		http.Error(w, "failed to get auto-sync flag", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(AutoSyncResponse{AutoSync: autoSync})
	if err != nil {
		log.Errorf("failed to marshal auto-sync response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleSetAutoSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.autosync.set")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req AutoSyncResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("set auto-sync, unmarshal json params: %s", err)
		http.Error(w, "set auto-sync failed", http.StatusBadRequest)
		return
	}

	if err := handler.store.SetAutoSync(ctx, userID, req.AutoSync); err != nil {
		log.Errorf("failed to set auto-sync flag for user %d: %s", userID, err)
		http.Error(w, "failed to set auto-sync flag", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(SetAutoSyncResponse{Success: true})
	if err != nil {
		log.Errorf("failed to marshal set auto-sync response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}
