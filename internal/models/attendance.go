package models

import (
	"fmt"
	"strings"
)

// Attendance is the tri-state answer stored per (game, player) cell.
type Attendance int

const (
	Unsure Attendance = 0
	Yes    Attendance = 1
	No     Attendance = 2
)

var attendanceNames = [...]string{"UNSURE", "YES", "NO"}

func (a Attendance) String() string {
	return TranslateStatus(int(a))
}

// TranslateStatus maps a stored cell value to its display string.
func TranslateStatus(v int) string {
	if v < 0 || v >= len(attendanceNames) {
		return fmt.Sprintf("Attendance(%d)", v)
	}
	return attendanceNames[v]
}

// ParseAttendance accepts YES, NO and UNSURE in any case.
func ParseAttendance(s string) (Attendance, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNSURE":
		return Unsure, nil
	case "YES":
		return Yes, nil
	case "NO":
		return No, nil
	}
	return Unsure, fmt.Errorf("invalid attendance status %q", s)
}

func StatusIsValid(s string) bool {
	_, err := ParseAttendance(s)
	return err == nil
}
