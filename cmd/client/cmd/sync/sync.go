package sync

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jtoza/school-sync-pro/internal/app/client"
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизировать устройство с сервером",
	Long: `Отправляет локальные несинхронизированные записи на сервер и
применяет серверную дельту. Отвергнутые сервером записи остаются
локально и повторяются в следующем раунде.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("Проверка соединения с сервером...")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			return fmt.Errorf("сервер недоступен: %w", err)
		}

		fmt.Println("Начало синхронизации...")
		start := time.Now()

		result, err := app.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		duration := time.Since(start)

		color.Green("✓ Синхронизация завершена за %v", duration.Round(time.Millisecond))
		fmt.Printf("Отправлено на сервер:  %d записей\n", result.Uploaded)
		fmt.Printf("Подтверждено сервером: %d записей\n", result.Confirmed)
		fmt.Printf("Получено с сервера:    %d записей\n", result.Downloaded)

		if result.Confirmed < result.Uploaded {
			color.Yellow("⚠ %d записей не подтверждено — они будут повторены в следующем раунде",
				result.Uploaded-result.Confirmed)
		}

		return nil
	},
}
