package sheets

import (
	"context"
	"fmt"

	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

const SheetAttendance = "Attendance"

// TableSource provides the attendance matrix of upcoming games.
type TableSource interface {
	UpcomingTable(ctx context.Context) ([]models.GameSummary, []models.Player, error)
}

// Exporter overwrites the Attendance sheet with the current matrix.
type Exporter struct {
	c   *Client
	src TableSource
}

func NewExporter(c *Client, src TableSource) *Exporter {
	return &Exporter{c: c, src: src}
}

// Export returns the spreadsheet link on success.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	games, players, err := e.src.UpcomingTable(ctx)
	if err != nil {
		return "", err
	}
	header, rows := models.AttendanceTable(games, players, util.PrettyLayout)

	if err := e.c.clear(ctx, SheetAttendance); err != nil {
		return "", fmt.Errorf("clear %s: %w", SheetAttendance, err)
	}
	if err := e.c.update(ctx, SheetAttendance, toValues(header, rows)); err != nil {
		return "", fmt.Errorf("update %s: %w", SheetAttendance, err)
	}
	return e.c.URL(), nil
}

func toValues(header []string, rows [][]string) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, row(header))
	for _, r := range rows {
		out = append(out, row(r))
	}
	return out
}

func row(cells []string) []interface{} {
	r := make([]interface{}, len(cells))
	for i, c := range cells {
		r[i] = c
	}
	return r
}
