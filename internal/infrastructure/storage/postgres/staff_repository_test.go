package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Применитель посещаемости на update меняет дату, статус, время входа
// и выхода и заметки; все они обязаны попасть в SET, иначе сервер
// сохранит старое значение, а устройство получит подтверждение с новым.
func TestAttendanceUpdateQuery_CoversMutableColumns(t *testing.T) {
	setIdx := strings.Index(attendanceUpdateQuery, "SET")
	whereIdx := strings.Index(attendanceUpdateQuery, "WHERE")
	require.Greater(t, whereIdx, setIdx)
	setList := attendanceUpdateQuery[setIdx:whereIdx]

	for _, column := range []string{
		"date", "status", "time_in", "time_out", "notes",
		"sync_status", "device_id", "last_modified",
	} {
		assert.Contains(t, setList, column+" =", "column %s", column)
	}
}
