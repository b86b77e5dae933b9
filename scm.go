package servicectl

import (
	"encoding/json"
	"fmt"
)

// SCM start types. Values match winsvc start type constants so the
// Windows driver can hand them to the service manager unchanged.
const (
	// SCMStartAutomatic starts the service at boot
	SCMStartAutomatic = 2
	// SCMStartManual starts the service on demand
	SCMStartManual = 3
)

// SCMRecoveryAction is one failure-recovery step.
type SCMRecoveryAction struct {
	// Type is the action kind; "restart" is the only one used here
	Type string `json:"type"`
	// DelaySec is the wait before the action runs
	DelaySec int `json:"delaySec"`
}

// SCMParams are the Service Control Manager registration parameters
// for the daemon. Unlike launchd and systemd there is no descriptor
// file on Windows; the SCM database holds the registration. The
// rendered form of this struct is persisted next to the config so
// validate can detect drift between what was registered and what the
// SCM reports.
type SCMParams struct {
	// Name is the SCM service name
	Name string `json:"name"`
	// DisplayName is shown in the services console
	DisplayName string `json:"displayName"`
	// Description is shown in the services console
	Description string `json:"description"`
	// BinaryPath is the full command line registered with the SCM
	BinaryPath string `json:"binaryPath"`
	// StartType is SCMStartAutomatic or SCMStartManual
	StartType int `json:"startType"`
	// Environment is exported to the service process
	Environment map[string]string `json:"environment"`
	// ResetPeriodSec is the failure-count reset period
	ResetPeriodSec int `json:"resetPeriodSec"`
	// Recovery lists the per-failure recovery actions in order
	Recovery []SCMRecoveryAction `json:"recovery"`
}

// SCMParamsFromDescriptor translates the logical descriptor into SCM
// registration parameters: startup type Automatic plus three
// restart-on-failure recovery actions with a one-day reset period.
func SCMParamsFromDescriptor(d *ServiceDescriptor) *SCMParams {
	restartDelay := d.RestartSec
	if restartDelay <= 0 {
		restartDelay = DefaultThrottleSec
	}
	return &SCMParams{
		Name:           d.Name,
		DisplayName:    d.DisplayName,
		Description:    d.Description,
		BinaryPath:     quoteCommand(d.commandLine()),
		StartType:      SCMStartAutomatic,
		Environment:    d.Environment,
		ResetPeriodSec: 86400,
		Recovery: []SCMRecoveryAction{
			{Type: "restart", DelaySec: restartDelay},
			{Type: "restart", DelaySec: restartDelay},
			{Type: "restart", DelaySec: restartDelay * 6},
		},
	}
}

// Render serializes the parameters deterministically. encoding/json
// emits map keys in sorted order, so repeated renders of the same
// params are byte-identical.
func (p *SCMParams) Render() ([]byte, error) {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDescriptorGeneration, err)
	}
	return append(out, '\n'), nil
}

// ParseSCMParams decodes a previously rendered parameters file.
func ParseSCMParams(data []byte) (*SCMParams, error) {
	var p SCMParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing SCM params: %w", err)
	}
	return &p, nil
}
