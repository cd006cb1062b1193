package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
)

type AdminService interface {
	GetOverview(ctx context.Context) (*models.OverviewResponse, error)
}

type Admin struct {
	s AdminService
	l logger.Logger
}

func NewAdmin(s AdminService, l logger.Logger) *Admin {
	return &Admin{
		s: s,
		l: l,
	}
}

// GetOverview godoc
// @Summary      Today's fleet and financial overview
// @Tags         metrics
// @Produce      json
// @Success      200 {object} models.OverviewResponse
// @Security     BearerAuth
// @Router       /metrics/overview [get]
func (h *Admin) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_get_overview")

	overview, err := h.s.GetOverview(ctx)
	if err != nil {
		serviceErrorResponse(ctx, h.l, w, "failed to get overview", err)
		return
	}

	h.l.Debug(ctx, "fetched overview", "orders", overview.Orders.Total, "settings_version", overview.SettingsVersion)

	respond(ctx, h.l, w, http.StatusOK, envelope{"overview": overview})
}
