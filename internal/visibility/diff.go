package visibility

import "sort"

// Diff computes the minimal read-cursor delta between two visible-channel
// sets: toCreate = after − before, toDelete = before − after. Every mutation
// path reduces to one call of this primitive, which keeps the
// cursor-visibility invariant enforced in a single place. Results are sorted
// for deterministic batching.
func Diff(before, after map[int64]struct{}) (toCreate, toDelete []int64) {
	for id := range after {
		if _, ok := before[id]; !ok {
			toCreate = append(toCreate, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	sort.Slice(toCreate, func(i, j int) bool { return toCreate[i] < toCreate[j] })
	sort.Slice(toDelete, func(i, j int) bool { return toDelete[i] < toDelete[j] })
	return toCreate, toDelete
}
