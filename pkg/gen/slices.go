package gen

// DeleteFromSliceUnordered deletes element i from the slice, by swapping the last
// element into position i. The order of the remaining elements is not preserved.
func DeleteFromSliceUnordered[T any](slice []T, i int) []T {
	slice[i] = slice[len(slice)-1]
	return slice[:len(slice)-1]
}
