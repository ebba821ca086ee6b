//go:build windows

package power

import "github.com/tutu-network/battguard/internal/domain"

// NewReader returns the CIM reader.
func NewReader() domain.PowerReader {
	return NewCIMReader()
}
