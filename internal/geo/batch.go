package geo

// Item is one element of a batch request.
// Key is the results map key; IP is only meaningful when IsString is true.
type Item struct {
	Key      string
	IP       string
	IsString bool
}

// StringItem returns an item for a string element.
func StringItem(ip string) Item {
	return Item{Key: ip, IP: ip, IsString: true}
}

// NonStringItem returns an item for an element that is not a string,
// keyed by its textual form.
func NonStringItem(key string) Item {
	return Item{Key: key}
}

// AnalyticsEntry counts the successful lookups for one country name.
type AnalyticsEntry struct {
	X string `json:"x"`
	Y int    `json:"y"`
}

// Tally counts country names, remembering first-occurrence order.
type Tally struct {
	index   map[string]int
	entries []AnalyticsEntry
}

// NewTally returns an empty Tally.
func NewTally() *Tally {
	return &Tally{index: make(map[string]int)}
}

// Add increments the count for name.
func (t *Tally) Add(name string) {
	if i, ok := t.index[name]; ok {
		t.entries[i].Y++
		return
	}
	t.index[name] = len(t.entries)
	t.entries = append(t.entries, AnalyticsEntry{X: name, Y: 1})
}

// Entries returns the counts in first-occurrence order. The result is never nil.
func (t *Tally) Entries() []AnalyticsEntry {
	out := make([]AnalyticsEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Total returns the sum of all counts.
func (t *Tally) Total() int {
	total := 0
	for _, e := range t.entries {
		total += e.Y
	}
	return total
}

// BatchResult holds one Result per distinct key plus the analytics tally.
// Outcomes has one entry per item, in input order, duplicates included.
type BatchResult struct {
	Results   map[string]Result
	Analytics []AnalyticsEntry
	Outcomes  []Outcome
}

// Batch resolves every item in order. A failing item is recorded in the
// results and never stops the batch. Duplicate keys keep the last outcome,
// while the tally counts every successful occurrence.
func (s *Service) Batch(items []Item) BatchResult {
	results := make(map[string]Result, len(items))
	outcomes := make([]Outcome, 0, len(items))
	tally := NewTally()

	for _, item := range items {
		if !item.IsString {
			results[item.Key] = Result{Outcome: OutcomeInvalid}
			outcomes = append(outcomes, OutcomeInvalid)
			continue
		}

		res := s.Resolve(item.IP)
		results[item.Key] = res
		outcomes = append(outcomes, res.Outcome)
		if res.Found() {
			tally.Add(res.CountryName)
		}
	}

	return BatchResult{
		Results:   results,
		Analytics: tally.Entries(),
		Outcomes:  outcomes,
	}
}
