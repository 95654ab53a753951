package models

import "sort"

// AttendanceTable flattens games x players into a header plus one row per
// game. Players are ordered by name; missing cells read as UNSURE.
func AttendanceTable(games []GameSummary, players []Player, layout string) ([]string, [][]string) {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})

	header := []string{"Date", "Place", "Adversary"}
	for _, p := range sorted {
		header = append(header, p.Name())
	}

	rows := make([][]string, 0, len(games))
	for _, g := range games {
		row := []string{g.DateTime.Format(layout), g.Place, g.Adversary}
		for _, p := range sorted {
			row = append(row, g.Statuses[p.ID].String())
		}
		rows = append(rows, row)
	}
	return header, rows
}
