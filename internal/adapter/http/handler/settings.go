package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
)

type SettingsService interface {
	Current() models.SettingsSnapshot
	Update(ctx context.Context, partial map[string]any) (models.SettingsSnapshot, error)
}

type Settings struct {
	service SettingsService
	l       logger.Logger
}

func NewSettings(service SettingsService, l logger.Logger) *Settings {
	return &Settings{
		service: service,
		l:       l,
	}
}

// Get godoc
// @Summary      Active manager settings
// @Tags         settings
// @Produce      json
// @Success      200 {object} models.SettingsSnapshot
// @Security     BearerAuth
// @Router       /settings [get]
func (h *Settings) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_settings")

	respond(ctx, h.l, w, http.StatusOK, envelope{"settings": h.service.Current()})
}

// Update godoc
// @Summary      Update some or all manager settings
// @Description  Values are coerced and clamped; unknown keys are rejected
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body map[string]any true "Partial settings"
// @Success      200 {object} models.SettingsSnapshot
// @Failure      409 {object} map[string]any "Settings changed concurrently"
// @Security     BearerAuth
// @Router       /settings [put]
func (h *Settings) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_update_settings")

	var partial map[string]any
	if err := readJSON(w, r, &partial); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	snap, err := h.service.Update(ctx, partial)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to update settings", err)
		return
	}

	respond(ctx, h.l, w, http.StatusOK, envelope{"settings": snap})
}
