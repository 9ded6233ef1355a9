// cmd/client/cmd/init.go
package cmd

import (
	"github.com/jtoza/school-sync-pro/cmd/client/cmd/attendance"
	syncCmd "github.com/jtoza/school-sync-pro/cmd/client/cmd/sync"
)

func init() {
	// Команды работы с посещаемостью
	rootCmd.AddCommand(attendance.AttendanceCmd)
	attendance.AttendanceCmd.AddCommand(attendance.MarkCmd)
	attendance.AttendanceCmd.AddCommand(attendance.ListCmd)

	// Синхронизация и статус устройства
	rootCmd.AddCommand(syncCmd.SyncCmd)
	rootCmd.AddCommand(syncCmd.StatusCmd)
}
