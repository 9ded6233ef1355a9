package staff

import "errors"

var (
	ErrNotFound           = errors.New("staff member not found")
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrNoStaff            = errors.New("no staff members in storage")
)
