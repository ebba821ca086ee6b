//go:build linux

package power

import "github.com/tutu-network/battguard/internal/domain"

// NewReader returns the sysfs reader.
func NewReader() domain.PowerReader {
	return NewSysfsReader(DefaultSysfsRoot)
}
