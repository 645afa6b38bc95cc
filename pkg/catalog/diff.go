package catalog

// DiffResult splits two catalogs into newly recorded, retained and obsolete entries.
type DiffResult struct {
	Added    []Entry
	Retained []Entry
	Obsolete []Entry
}

// Diff compares the catalog loaded at the start of a run with the one built during it.
// Each slice is in encode order.
func Diff(prev, next Catalog) DiffResult {
	var res DiffResult
	for k, e := range next {
		if _, ok := prev[k]; ok {
			res.Retained = append(res.Retained, e)
		} else {
			res.Added = append(res.Added, e)
		}
	}
	for k, e := range prev {
		if _, ok := next[k]; !ok {
			res.Obsolete = append(res.Obsolete, e)
		}
	}
	sortEntries(res.Added)
	sortEntries(res.Retained)
	sortEntries(res.Obsolete)
	return res
}
