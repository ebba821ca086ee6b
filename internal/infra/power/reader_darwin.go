//go:build darwin

package power

import "github.com/tutu-network/battguard/internal/domain"

// NewReader returns the pmset reader.
func NewReader() domain.PowerReader {
	return NewPmsetReader()
}
