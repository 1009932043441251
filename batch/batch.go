// Package batch provides slice partitioning for rate-limited upstream calls.
package batch

// Split partitions items into ordered groups of at most size elements.
// The last group may be shorter. Order is preserved and every element
// appears exactly once. An empty input or a non-positive size yields nil.
func Split[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	groups := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end])
	}
	return groups
}
