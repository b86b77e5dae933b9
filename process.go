package servicectl

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// enrichProcess fills in uptime and verifies the PID reported by the
// native manager actually resolves to a live process. Enrichment is
// best-effort: a query failure leaves the native view untouched rather
// than degrading the whole status call.
func enrichProcess(st *Status) {
	if st.PID <= 0 {
		return
	}

	proc, err := process.NewProcess(int32(st.PID))
	if err != nil {
		// native manager reported a PID that no longer exists
		st.PID = 0
		return
	}

	if createMs, err := proc.CreateTime(); err == nil && createMs > 0 {
		st.Uptime = time.Since(time.UnixMilli(createMs))
	}
	if name, err := proc.Name(); err == nil && name != "" && st.Detail != "" {
		st.Detail += ", process " + name
	}
}
