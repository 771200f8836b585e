// Package diskmanager checks filesystem capacity before tapes are created.
package diskmanager

import (
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tphakala/tapedeck/internal/errors"
)

// DiskSpaceInfo holds detailed disk space information.
type DiskSpaceInfo struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64 // available to the current user
}

// GetDetailedDiskUsage returns space figures for the filesystem holding path.
func GetDetailedDiskUsage(path string) (DiskSpaceInfo, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(fmt.Errorf("failed to get disk usage for %s: %w", path, err)).
			Component("diskmanager").
			Category(errors.CategorySystem).
			Context("operation", "disk_usage").
			Build()
	}
	return DiskSpaceInfo{
		TotalBytes: usage.Total,
		UsedBytes:  usage.Used,
		FreeBytes:  usage.Free,
	}, nil
}

// EnsureFreeSpace fails when the filesystem that will hold file has less
// than need bytes available.
func EnsureFreeSpace(file string, need uint64) error {
	dir := filepath.Dir(file)
	info, err := GetDetailedDiskUsage(dir)
	if err != nil {
		return err
	}
	if info.FreeBytes < need {
		return errors.Newf("insufficient disk space for %s: need %d bytes, %d available", file, need, info.FreeBytes).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("need_bytes", need).
			Context("free_bytes", info.FreeBytes).
			Build()
	}
	return nil
}
