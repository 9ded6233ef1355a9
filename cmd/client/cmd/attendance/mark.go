package attendance

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jtoza/school-sync-pro/internal/app/client"
)

var (
	teacher string
	date    string
	status  string
	timeIn  string
	timeOut string
	notes   string
)

var MarkCmd = &cobra.Command{
	Use:   "mark",
	Short: "Отметить посещаемость учителя",
	Long: `Создает локальную запись посещаемости. Запись уходит на сервер
при следующей синхронизации; повторная отметка того же учителя за тот
же день на сервере схлопывается в одну запись.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		att, err := app.MarkAttendance(teacher, date, status, timeIn, timeOut, notes)
		if err != nil {
			return fmt.Errorf("ошибка отметки посещаемости: %w", err)
		}

		color.Green("✓ Посещаемость отмечена")
		fmt.Printf("  Дата:   %s\n", att.Date)
		fmt.Printf("  Статус: %s\n", att.Status)
		if att.TimeIn != "" {
			fmt.Printf("  Приход: %s\n", att.TimeIn)
		}
		if att.TimeOut != "" {
			fmt.Printf("  Уход:   %s\n", att.TimeOut)
		}
		color.Yellow("Запись будет отправлена при следующей синхронизации: schoolsync sync")
		return nil
	},
}

func init() {
	MarkCmd.Flags().StringVar(&teacher, "teacher", "", "sync_id учителя (пусто — дежурный сотрудник)")
	MarkCmd.Flags().StringVar(&date, "date", "", "дата в формате 2006-01-02 (пусто — сегодня)")
	MarkCmd.Flags().StringVar(&status, "status", "present", "отметка: present|absent|late|half_day|leave")
	MarkCmd.Flags().StringVar(&timeIn, "time-in", "", "время прихода, 15:04:05")
	MarkCmd.Flags().StringVar(&timeOut, "time-out", "", "время ухода, 15:04:05")
	MarkCmd.Flags().StringVar(&notes, "notes", "", "примечание")
}
