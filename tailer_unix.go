//go:build !windows

package autofilter

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number backing a os.FileInfo on unix-like
// systems, used for rotation/reopen identity comparison.
func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}

// chownToMatch gives a freshly recreated log file the owner/group of the
// rotated-out file it replaced, matching the HTTP server's expectations.
func chownToMatch(f *os.File, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	_ = f.Chown(int(st.Uid), int(st.Gid))
}
