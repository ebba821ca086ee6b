package power

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tutu-network/battguard/internal/domain"
)

var pmsetPercentRe = regexp.MustCompile(`(\d+)%`)

// PmsetReader parses `pmset -g batt` on macOS.
type PmsetReader struct {
	run runFunc
}

// NewPmsetReader creates a pmset-backed reader.
func NewPmsetReader() *PmsetReader {
	return &PmsetReader{run: execOutput}
}

// Sample implements domain.PowerReader.
func (r *PmsetReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	out, err := r.run(ctx, "pmset", "-g", "batt")
	if err != nil {
		return domain.Absent(), fmt.Errorf("pmset: %w", err)
	}
	return parsePmset(string(out))
}

// parsePmset reads output like:
//
//	Now drawing from 'Battery Power'
//	 -InternalBattery-0 (id=4653155)	85%; discharging; 4:10 remaining present: true
func parsePmset(out string) (domain.PowerSample, error) {
	if !strings.Contains(out, "InternalBattery") {
		return domain.Absent(), nil
	}

	var onAC bool
	switch {
	case strings.Contains(out, "'AC Power'"):
		onAC = true
	case strings.Contains(out, "'Battery Power'"):
		onAC = false
	default:
		return domain.Absent(), fmt.Errorf("pmset: unknown power source")
	}

	m := pmsetPercentRe.FindStringSubmatch(out)
	if len(m) < 2 {
		return domain.Absent(), fmt.Errorf("pmset: no charge percentage")
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return domain.Absent(), fmt.Errorf("pmset: parse %q: %w", m[1], err)
	}
	return domain.NewSample(onAC, pct), nil
}
