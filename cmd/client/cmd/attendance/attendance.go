package attendance

import "github.com/spf13/cobra"

var AttendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Работа с посещаемостью учителей",
	Long:  `Команды для отметки и просмотра посещаемости учителей на устройстве.`,
}
