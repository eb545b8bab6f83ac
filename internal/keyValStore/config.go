package keyValStore

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/disk"
)

func (sc *StoreConfig) checkConfig() error {
	if sc.InMemory {
		return nil
	}

	if len(sc.Paths) == 0 {
		return errors.New("no path provided in configuration")
	}

	path := sc.Paths[0] // Currently only the first path is utilized
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}

	if sc.MinimumFreeSpace <= 0 {
		return nil
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("could not read disk usage of %s: %w", path, err)
	}

	availableSpaceInGB := usage.Free / (1024 * 1024 * 1024)
	if int(availableSpaceInGB) < sc.MinimumFreeSpace {
		return errors.New("not enough space available on disk")
	}

	return nil
}
