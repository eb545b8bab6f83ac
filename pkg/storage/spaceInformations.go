package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

const gigabyte = 1024 * 1024 * 1024

// checkFreeSpace fails when the file system holding path has less than
// minimumFreeGB available.
func checkFreeSpace(path string, minimumFreeGB uint) error {
	if minimumFreeGB == 0 {
		return nil
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("%w: disk usage of %s: %v", ErrStorageIO, path, err)
	}

	if usage.Free/gigabyte < uint64(minimumFreeGB) {
		return fmt.Errorf("%w: %.2f GB free at %s, need %d GB", ErrInsufficientSpace, float64(usage.Free)/gigabyte, path, minimumFreeGB)
	}
	return nil
}

// calculateDirectorySize sums the size of all files below path.
func calculateDirectorySize(path string) (size int64, err error) {
	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return
}

// displayDiskUsage logs the disk usage of the file system holding path and
// the space taken by the database itself.
func displayDiskUsage(log *logrus.Logger, path string) {
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	usage, err := disk.Usage(path)
	if err != nil {
		log.WithFields(logrus.Fields{
			"path": path,
		}).Errorf("Error retrieving disk usage stats: %v", err)
		return
	}

	pathSize, err := calculateDirectorySize(path)
	if err != nil {
		log.WithFields(logrus.Fields{
			"path": path,
		}).Errorf("Error calculating directory size: %v", err)
		return
	}

	log.WithFields(logrus.Fields{
		"Path":        path,
		"Filesystem":  usage.Fstype,
		"Total (GB)":  fmt.Sprintf("%.2f", float64(usage.Total)/1e9),
		"Used (GB)":   fmt.Sprintf("%.2f", float64(usage.Used)/1e9),
		"Free (GB)":   fmt.Sprintf("%.2f", float64(usage.Free)/1e9),
		"Usage by DB": fmt.Sprintf("%.2f", float64(pathSize)/1e9),
	}).Debug("Disk Usage")
}
