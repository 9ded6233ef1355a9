//Приём пакетов изменений с офлайн-устройств школы;
//слияние по натуральным ключам вместо дублей;
//отгрузка серверной дельты по отметке устройства.

//POST /api/sync       # Раунд синхронизации (пакет изменений + дельта)
//GET  /api/v1/health  # Проверка живости

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "github.com/jtoza/school-sync-pro/internal/app/server/api/http/health"
	"github.com/jtoza/school-sync-pro/internal/app/server/api/http/middleware"
	"github.com/jtoza/school-sync-pro/internal/app/server/api/http/middleware/logger"
	syncAPI "github.com/jtoza/school-sync-pro/internal/app/server/api/http/sync"
	"github.com/jtoza/school-sync-pro/internal/domain/finance"
	"github.com/jtoza/school-sync-pro/internal/domain/result"
	"github.com/jtoza/school-sync-pro/internal/domain/staff"
	"github.com/jtoza/school-sync-pro/internal/domain/student"
	"github.com/jtoza/school-sync-pro/internal/domain/sync"
	"github.com/jtoza/school-sync-pro/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("School Sync API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(storage, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	pool := storage.Pool()
	staffRepo := postgres.NewStaffRepository(pool, log)
	attendanceRepo := postgres.NewAttendanceRepository(pool, log)
	studentRepo := postgres.NewStudentRepository(pool, log)
	resultRepo := postgres.NewResultRepository(pool, log)
	financeRepo := postgres.NewFinanceRepository(pool, log)

	registry := sync.NewRegistry()

	studentSync := student.NewSync(studentRepo, log)
	registry.MustRegister(sync.ModelStudent, sync.Capability{
		Applier: studentSync, Collector: studentSync,
	})

	staffSync := staff.NewStaffSync(staffRepo, log)
	registry.MustRegister(sync.ModelStaff, sync.Capability{
		Applier: staffSync, Collector: staffSync,
	})

	attendanceSync := staff.NewAttendanceSync(staffRepo, attendanceRepo, log)
	registry.MustRegister(sync.ModelTeacherAttendance, sync.Capability{
		Applier: attendanceSync, Collector: attendanceSync,
	})

	resultSync := result.NewSync(resultRepo, studentRepo, log)
	registry.MustRegister(sync.ModelResult, sync.Capability{
		Applier: resultSync, Collector: resultSync,
	})

	invoiceSync := finance.NewInvoiceSync(financeRepo, studentRepo, log)
	registry.MustRegister(sync.ModelInvoice, sync.Capability{
		Applier: invoiceSync, Collector: invoiceSync,
	})

	itemSync := finance.NewItemSync(financeRepo, log)
	registry.MustRegister(sync.ModelInvoiceItem, sync.Capability{
		Applier: itemSync, Collector: itemSync,
	})

	receiptSync := finance.NewReceiptSync(financeRepo, log)
	registry.MustRegister(sync.ModelReceipt, sync.Capability{
		Applier: receiptSync, Collector: receiptSync,
	})

	syncService := sync.NewService(registry, log)
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
