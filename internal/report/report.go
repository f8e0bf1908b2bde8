package report

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/stone-age-io/deviceinfo/internal/probe"
)

// AgentVersion is reported in every envelope
const AgentVersion = "3.0.0"

// ErrEmptyUserName is returned when the operator did not enter a name
var ErrEmptyUserName = errors.New("user name is required")

// Report is the envelope submitted to the inventory endpoint
type Report struct {
	AgentVersion  string  `json:"agentVersion"`
	SubmittedAt   string  `json:"submittedAt"`
	UserInputName string  `json:"userInputName"`
	Machine       Machine `json:"machine"`
}

// Machine is the wire form of probe.MachineInfo.
// SSDTotalGB and DiskTotalGB carry the same measurement; receivers read either key.
type Machine struct {
	Hostname    string    `json:"hostname"`
	OS          string    `json:"os"`
	CPUModel    string    `json:"cpu_model"`
	RAMGB       Gigabytes `json:"ram_gb"`
	SSDTotalGB  Gigabytes `json:"ssd_total_gb"`
	DiskTotalGB Gigabytes `json:"disk_total_gb"`
	WiFiMAC     string    `json:"wifi_mac"`
}

// Gigabytes is a size that always serialises with a fractional part (16.0, 15.88)
type Gigabytes float64

func (g Gigabytes) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(g), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// ValidateUserName trims name and rejects it if nothing is left
func ValidateUserName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyUserName
	}
	return name, nil
}

// Build assembles the envelope for userName and info, stamped at now (UTC)
func Build(userName string, info probe.MachineInfo, now time.Time) (*Report, error) {
	name, err := ValidateUserName(userName)
	if err != nil {
		return nil, err
	}

	return &Report{
		AgentVersion:  AgentVersion,
		SubmittedAt:   now.UTC().Format(time.RFC3339),
		UserInputName: name,
		Machine:       NewMachine(info),
	}, nil
}

// NewMachine converts a probe snapshot to its wire form
func NewMachine(info probe.MachineInfo) Machine {
	return Machine{
		Hostname:    info.Hostname,
		OS:          info.OS,
		CPUModel:    info.CPUModel,
		RAMGB:       Gigabytes(info.RAMGB),
		SSDTotalGB:  Gigabytes(info.DiskTotalGB),
		DiskTotalGB: Gigabytes(info.DiskTotalGB),
		WiFiMAC:     info.WiFiMAC,
	}
}
