//go:build linux

package storage

import (
	"io/fs"
	"syscall"
	"time"
)

// createdTime reports the inode change time, the closest thing Linux
// exposes to a creation timestamp.
func createdTime(info fs.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	}
	return info.ModTime()
}
