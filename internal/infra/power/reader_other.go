//go:build !linux && !darwin && !windows

package power

import (
	"context"

	"github.com/tutu-network/battguard/internal/domain"
)

type unsupportedReader struct{}

// NewReader returns a reader that always fails; the monitor treats every
// poll as absent.
func NewReader() domain.PowerReader {
	return unsupportedReader{}
}

func (unsupportedReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	return domain.Absent(), domain.ErrUnsupported
}
