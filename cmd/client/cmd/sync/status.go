package sync

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jtoza/school-sync-pro/internal/app/client"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние устройства",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		status, err := app.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения статуса: %w", err)
		}

		fmt.Println("=== Состояние устройства ===")
		fmt.Printf("Устройство: %s\n", status.DeviceID)

		if status.LastSync == "" {
			fmt.Println("Последняя синхронизация: не выполнялась")
		} else {
			fmt.Printf("Последняя синхронизация: %s\n", status.LastSync)
		}

		if status.Pending > 0 {
			color.Yellow("Не отправлено записей: %d", status.Pending)
		} else {
			fmt.Println("Все записи синхронизированы")
		}

		fmt.Print("Сервер: ")
		if status.Online {
			color.Green("доступен")
		} else {
			color.Red("недоступен")
		}

		return nil
	},
}
