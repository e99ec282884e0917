package diagnostics

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is a startup problem described for the operator. It is an
// error so init code can return it like any other.
type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`

	Cause error `json:"-"`
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Code, d.Summary)
	if d.Cause != nil {
		fmt.Fprintf(&b, ": %v", d.Cause)
	}
	return b.String()
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// Log writes d as one structured event at a level matching its severity.
func (d *Diagnostic) Log(l zerolog.Logger) {
	ev := l.Error()
	switch d.Severity {
	case Info:
		ev = l.Info()
	case Warn:
		ev = l.Warn()
	}
	ev = ev.Str("code", d.Code).Err(d.Cause)
	if d.Detail != "" {
		ev = ev.Str("detail", d.Detail)
	}
	if len(d.LikelyCauses) > 0 {
		ev = ev.Strs("likely_causes", d.LikelyCauses)
	}
	if len(d.SuggestedFixes) > 0 {
		ev = ev.Strs("suggested_fixes", d.SuggestedFixes)
	}
	if len(d.Evidence) > 0 {
		ev = ev.Fields(d.Evidence)
	}
	ev.Msg(d.Summary)
}

// Output is a failed LED output driver.
func Output(driver string, err error) *Diagnostic {
	return &Diagnostic{
		Severity: Err,
		Code:     "INIT.OUTPUT",
		Summary:  "LED output did not initialize",
		LikelyCauses: []string{
			"SPI or PWM not enabled in the boot config",
			"process lacks permission for /dev/spidev* or /dev/mem",
			"wrong port name or GPIO number",
		},
		SuggestedFixes: []string{
			"enable the bus (raspi-config) and reboot",
			"run with driver: sim to check the rest of the setup",
		},
		Evidence: map[string]any{"driver": driver},
		Cause:    err,
	}
}

// Display is a failed status display.
func Display(bus string, err error) *Diagnostic {
	return &Diagnostic{
		Severity:       Err,
		Code:           "INIT.DISPLAY",
		Summary:        "status display did not respond",
		LikelyCauses:   []string{"I2C disabled", "display not wired or wrong address"},
		SuggestedFixes: []string{"check i2cdetect output", "set display.enabled: false"},
		Evidence:       map[string]any{"bus": bus},
		Cause:          err,
	}
}

// Indicator is a failed power indicator pin.
func Indicator(pin string, err error) *Diagnostic {
	return &Diagnostic{
		Severity:       Err,
		Code:           "INIT.INDICATOR",
		Summary:        "power indicator pin unavailable",
		LikelyCauses:   []string{"pin name unknown on this board", "pin claimed by another driver"},
		SuggestedFixes: []string{"list pins with periph-info", "clear power.indicator_pin"},
		Evidence:       map[string]any{"pin": pin},
		Cause:          err,
	}
}

// Link is a failed remote configuration channel.
func Link(addr string, err error) *Diagnostic {
	return &Diagnostic{
		Severity:       Err,
		Code:           "INIT.LINK",
		Summary:        "configuration channel could not listen",
		LikelyCauses:   []string{"address already in use", "privileged port without permission"},
		SuggestedFixes: []string{"change http.addr"},
		Evidence:       map[string]any{"addr": addr},
		Cause:          err,
	}
}
