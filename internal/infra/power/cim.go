package power

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tutu-network/battguard/internal/domain"
)

// cimQuery prints "<BatteryStatus> <EstimatedChargeRemaining>" for the
// first battery, or nothing when there is none.
const cimQuery = `$b = Get-CimInstance Win32_Battery -ErrorAction SilentlyContinue | Select-Object -First 1; ` +
	`if ($b) { "{0} {1}" -f $b.BatteryStatus, $b.EstimatedChargeRemaining }`

// CIMReader queries Win32_Battery through PowerShell on Windows.
type CIMReader struct {
	run runFunc
}

// NewCIMReader creates a CIM-backed reader.
func NewCIMReader() *CIMReader {
	return &CIMReader{run: execOutput}
}

// Sample implements domain.PowerReader.
func (r *CIMReader) Sample(ctx context.Context) (domain.PowerSample, error) {
	out, err := r.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", cimQuery)
	if err != nil {
		return domain.Absent(), fmt.Errorf("query Win32_Battery: %w", err)
	}
	return parseCIM(string(out))
}

// parseCIM interprets Win32_Battery.BatteryStatus: 1 (discharging),
// 4 (low) and 5 (critical) mean the machine is on battery; every other
// documented value implies external power.
func parseCIM(out string) (domain.PowerSample, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return domain.Absent(), nil
	}
	if len(fields) != 2 {
		return domain.Absent(), fmt.Errorf("unexpected Win32_Battery output %q", strings.TrimSpace(out))
	}

	status, err := strconv.Atoi(fields[0])
	if err != nil {
		return domain.Absent(), fmt.Errorf("parse BatteryStatus %q: %w", fields[0], err)
	}
	pct, err := strconv.Atoi(fields[1])
	if err != nil {
		return domain.Absent(), fmt.Errorf("parse EstimatedChargeRemaining %q: %w", fields[1], err)
	}

	onBattery := status == 1 || status == 4 || status == 5
	return domain.NewSample(!onBattery, pct), nil
}
