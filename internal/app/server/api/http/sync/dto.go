package sync

import (
	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

// Request/Response структуры для пакетной синхронизации
type syncInput struct {
	Body sync.BatchRequest
}

type syncOutput struct {
	Body sync.BatchResponse
}
