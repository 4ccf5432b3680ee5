// ABOUTME: Toolset bundles and the gating rules that decide which ones load.
// ABOUTME: Default is always on; others load by name, "all", or module license.

package registry

// DefaultToolsetName names the toolset that is always enabled.
const DefaultToolsetName = "default"

// EnableAll is the enabled-set entry that admits every toolset.
const EnableAll = "all"

// Toolset is a named bundle of tools. Module, when set, names the
// platform module whose license admits this toolset even without an
// explicit enable.
type Toolset struct {
	Name        string
	Description string
	Module      string
	Tools       []*Tool
}

// GateReason records which rule admitted a toolset.
type GateReason string

const (
	GateDefault  GateReason = "default"
	GateExplicit GateReason = "explicit"
	GateAll      GateReason = "all"
	GateLicensed GateReason = "licensed"
)

// ToolsetGroup is a loaded toolset plus the rule that admitted it.
type ToolsetGroup struct {
	Toolset *Toolset
	Reason  GateReason
}

// LicenseChecker reports whether a platform module is licensed for this
// installation.
type LicenseChecker interface {
	ModuleLicensed(module string) bool
}

// LicenseCheckerFunc adapts a function to the LicenseChecker interface.
type LicenseCheckerFunc func(module string) bool

// ModuleLicensed implements LicenseChecker.
func (f LicenseCheckerFunc) ModuleLicensed(module string) bool {
	return f(module)
}

// gate applies the toolset admission rules in priority order.
func gate(ts *Toolset, enabled []string, licenses LicenseChecker) (GateReason, bool) {
	if ts.Name == DefaultToolsetName {
		return GateDefault, true
	}
	all := false
	for _, name := range enabled {
		if name == ts.Name {
			return GateExplicit, true
		}
		if name == EnableAll {
			all = true
		}
	}
	if all {
		return GateAll, true
	}
	if ts.Module != "" && licenses != nil && licenses.ModuleLicensed(ts.Module) {
		return GateLicensed, true
	}
	return "", false
}
