package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) batchSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-batch",
		Method:      http.MethodPost,
		Path:        "/api/sync",
		Summary:     "Пакетная синхронизация записей",
		Description: "Принимает пакет изменений устройства и возвращает дельту сервера",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
