package store

import "time"

// LatestPer deduplicates rows on keyCol, keeping the row with the
// greatest orderCol value. Enrichment tables are append-only, so
// several generations of the same domain can coexist. Rows without a
// usable order value lose to rows that have one; among equals the
// later row wins.
func LatestPer(rows []Row, keyCol, orderCol string) []Row {
	best := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))
	for i, r := range rows {
		key, ok := r[keyCol].(string)
		if !ok || key == "" {
			continue
		}
		prev, seen := best[key]
		if !seen {
			best[key] = i
			order = append(order, key)
			continue
		}
		if !rowTime(rows[i], orderCol).Before(rowTime(rows[prev], orderCol)) {
			best[key] = i
		}
	}
	out := make([]Row, 0, len(order))
	for _, key := range order {
		out = append(out, rows[best[key]])
	}
	return out
}

func rowTime(r Row, col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
