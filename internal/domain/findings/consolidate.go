package findings

// Action is the outcome of consolidating two findings on the same location
type Action string

const (
	KeepExisting Action = "keep_existing"
	KeepBoth     Action = "keep_both"
)

// Consolidate keeps the existing finding only when the new one is identical.
// Model answers vary between runs, so near-duplicates are kept side by side.
func Consolidate(newFinding, existing Finding) Action {
	if newFinding.Equal(existing) {
		return KeepExisting
	}
	return KeepBoth
}
