//go:build !linux

package threads

// threadID is unavailable here; nested dispatch goes undetected.
func threadID() int {
	return 0
}
