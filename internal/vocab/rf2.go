package vocab

// ReadRF2 parses a tab-delimited SNOMED RF2 full-history file and collapses
// it to the current view: per id, only the row with the greatest
// effectiveTime survives. Row order follows the first appearance of each
// id.
func ReadRF2(path string) (*Table, error) {
	table, err := ReadTable(path, TableOptions{Comma: '\t', Header: true})
	if err != nil {
		return nil, err
	}

	type latest struct {
		pos  int
		time string
	}
	best := make(map[string]latest, len(table.Rows))
	order := make([]string, 0, len(table.Rows))

	for i, row := range table.Rows {
		id := table.Field(row, "id")
		effectiveTime := table.Field(row, "effectiveTime")
		current, seen := best[id]
		if !seen {
			best[id] = latest{pos: i, time: effectiveTime}
			order = append(order, id)
			continue
		}
		if effectiveTime > current.time {
			best[id] = latest{pos: i, time: effectiveTime}
		}
	}

	deduped := make([][]string, 0, len(order))
	for _, id := range order {
		deduped = append(deduped, table.Rows[best[id].pos])
	}
	table.Rows = deduped
	return table, nil
}
