package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CatalogPlugin/pkg/kit"
)

type installResp struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp,omitempty"`
	InstallationID string `json:"installationId"`
}

// installGet acknowledges an app installation. The token is logged only.
func installGet(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		log.Info("app installation initiated",
			zap.String("installation_id", id),
			zap.Bool("has_token", r.URL.Query().Get("token") != ""),
		)

		kit.WriteJSON(w, http.StatusOK, installResp{
			Success:        true,
			Message:        "App installed successfully",
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			InstallationID: id,
		})
	}
}

func installPost(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if err := kit.DecodeJSON(w, r, &body); err != nil && !errors.Is(err, kit.ErrEmptyBody) {
			log.Warn("install: ignoring unreadable body", zap.Error(err))
		}

		id := uuid.NewString()
		log.Info("app installation processed",
			zap.String("installation_id", id),
			zap.Bool("has_token", r.URL.Query().Get("token") != ""),
			zap.Int("body_fields", len(body)),
		)

		kit.WriteJSON(w, http.StatusOK, installResp{
			Success:        true,
			Message:        "App installation processed",
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			InstallationID: id,
		})
	}
}
