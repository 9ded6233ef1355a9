package attendance

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jtoza/school-sync-pro/internal/app/client"
	"github.com/jtoza/school-sync-pro/internal/domain/sync"
)

var limit int

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать локальные записи посещаемости",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		records, err := app.ListAttendance(limit)
		if err != nil {
			return fmt.Errorf("ошибка чтения записей: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("Записей посещаемости нет.")
			return nil
		}

		for _, rec := range records {
			marker := color.GreenString("✓")
			if rec.SyncStatus == string(sync.StatusPending) {
				marker = color.YellowString("…")
			}

			line := fmt.Sprintf("%s %s  %-8s", marker, rec.Date, rec.Status)
			if rec.TimeIn != "" {
				line += "  " + rec.TimeIn
			}
			if rec.TimeOut != "" {
				line += "–" + rec.TimeOut
			}
			if rec.Notes != "" {
				line += "  " + rec.Notes
			}
			fmt.Println(line)
		}

		return nil
	},
}

func init() {
	ListCmd.Flags().IntVar(&limit, "limit", 20, "максимум записей")
}
