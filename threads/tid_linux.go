//go:build linux

package threads

import "golang.org/x/sys/unix"

func threadID() int {
	return unix.Gettid()
}
