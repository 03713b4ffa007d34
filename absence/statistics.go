package absence

// AggregateStatistics maps every category display string to the number of
// days recorded under it in records. Categories with no records are present
// with a zero count.
func AggregateStatistics(records []Record) map[string]int {
	stats := make(map[string]int, len(categoryNames)-1)
	for _, c := range Categories() {
		stats[c.String()] = 0
	}
	for _, r := range records {
		if r.Category.IsValid() {
			stats[r.Category.String()] += r.Days()
		}
	}
	return stats
}
