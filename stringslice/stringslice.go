// Package stringslice has helpers for string slices used as small ordered sets
package stringslice

// Index returns the index of item in arr or -1 if it's not there
func Index(arr []string, item string) int {
	for i, s := range arr {
		if s == item {
			return i
		}
	}
	return -1
}

// Contains returns true if arr contains item
func Contains(arr []string, item string) bool {
	return Index(arr, item) >= 0
}

// AppendUniq appends item to arr unless it's already there
func AppendUniq(arr []string, item string) []string {
	if Contains(arr, item) {
		return arr
	}
	return append(arr, item)
}

// Remove removes the first occurrence of item from arr in place
func Remove(arr []string, item string) []string {
	idx := Index(arr, item)
	if idx < 0 {
		return arr
	}
	return append(arr[:idx], arr[idx+1:]...)
}
