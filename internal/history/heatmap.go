package history

import "fmt"

const unknownTable = "unknown"

type Heatmap struct {
	Issues  map[string]int `json:"issues"`
	ByTable map[string]int `json:"by_table"`
	ByHour  map[string]int `json:"by_hour"`
}

// BuildHeatmap counts flags by issue name, by the table of the analyzed
// plan and by the UTC hour ("00".."23") of the record.
func BuildHeatmap(records []Record) Heatmap {
	h := Heatmap{
		Issues:  make(map[string]int),
		ByTable: make(map[string]int),
		ByHour:  make(map[string]int),
	}

	for _, rec := range records {
		table := rec.Table
		if table == "" {
			table = unknownTable
		}
		hour := ""
		if !rec.Date.IsZero() {
			hour = fmt.Sprintf("%02d", rec.Date.UTC().Hour())
		}

		for _, f := range rec.Advice {
			h.Issues[f.Issue]++
			h.ByTable[table]++
			if hour != "" {
				h.ByHour[hour]++
			}
		}
	}
	return h
}

func (s *Store) Heatmap() (Heatmap, error) {
	records, err := s.Load()
	if err != nil {
		return Heatmap{}, err
	}
	return BuildHeatmap(records), nil
}
