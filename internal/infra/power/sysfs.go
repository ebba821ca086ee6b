package power

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tutu-network/battguard/internal/domain"
)

// DefaultSysfsRoot is where Linux exposes power supplies.
const DefaultSysfsRoot = "/sys/class/power_supply"

// SysfsReader reads power state from a Linux power_supply class
// directory. Supplies are rediscovered on every sample so hot-plugged
// adapters and batteries are picked up.
type SysfsReader struct {
	Root string
}

// NewSysfsReader creates a reader rooted at root (DefaultSysfsRoot if empty).
func NewSysfsReader(root string) *SysfsReader {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &SysfsReader{Root: root}
}

// Sample implements domain.PowerReader.
func (r *SysfsReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	entries, err := os.ReadDir(r.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Absent(), nil
		}
		return domain.Absent(), fmt.Errorf("read %s: %w", r.Root, err)
	}

	var (
		batteryPath string
		sawMains    bool
		mainsOnline bool
	)
	for _, e := range entries {
		dir := filepath.Join(r.Root, e.Name())
		devType, err := readString(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		switch devType {
		case "Mains", "USB":
			sawMains = true
			if v, err := readInt(filepath.Join(dir, "online")); err == nil && v == 1 {
				mainsOnline = true
			}
		case "Battery":
			// Peripheral batteries (mice, headsets) report scope=Device.
			if scope, err := readString(filepath.Join(dir, "scope")); err == nil && scope == "Device" {
				continue
			}
			if batteryPath == "" {
				batteryPath = dir
			}
		}
	}

	if batteryPath == "" {
		return domain.Absent(), nil
	}

	pct, err := readInt(filepath.Join(batteryPath, "capacity"))
	if err != nil {
		return domain.Absent(), fmt.Errorf("battery capacity: %w", err)
	}

	onAC := mainsOnline
	if !sawMains {
		// No adapter node: infer from the battery's own status.
		status, _ := readString(filepath.Join(batteryPath, "status"))
		onAC = status == "Charging" || status == "Full" || status == "Not charging"
	}
	return domain.NewSample(onAC, int(pct)), nil
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readInt(path string) (int64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q in %s: %w", s, path, err)
	}
	return v, nil
}
