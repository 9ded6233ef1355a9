package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.batchSyncOp(), h.batchSync)
}

func (h *Handler) batchSync(ctx context.Context, input *syncInput) (*syncOutput, error) {
	response, err := h.service.ProcessBatch(ctx, input.Body)
	if err != nil {
		return &syncOutput{
			Body: sync.BatchResponse{
				Status:  sync.StatusResponseError,
				Message: err.Error(),
			},
		}, nil
	}

	return &syncOutput{
		Body: *response,
	}, nil
}
