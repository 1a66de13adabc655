package stripper

import (
	"fmt"
	"strings"
)

// Mode selects what happens to a class file.
type Mode string

const (
	// ModeDump prints the decoded class with reference counts.
	ModeDump Mode = "dump"

	// ModePrune reduces the class to its public surface, compacts the
	// constant pool and writes the result.
	ModePrune Mode = "prune"

	// ModeWrite re-encodes the class unchanged.
	ModeWrite Mode = "write"
)

// ModeInfo describes a mode for help and validation.
type ModeInfo struct {
	Mode        Mode
	Description string
	// Prunes runs the pruning transform and the compaction fixpoint.
	Prunes bool
	// Writes stores an output file, subject to the output policy.
	Writes bool
}

var modeRegistry = map[Mode]*ModeInfo{
	ModeDump: {
		Mode:        ModeDump,
		Description: "Print the class structure with constant pool reference counts",
	},
	ModePrune: {
		Mode:        ModePrune,
		Description: "Strip non-public members and method bodies, compact the pool, write <file>.alt",
		Prunes:      true,
		Writes:      true,
	},
	ModeWrite: {
		Mode:        ModeWrite,
		Description: "Re-encode the class unchanged and write <file>.alt",
		Writes:      true,
	},
}

var modeOrder = []Mode{ModeDump, ModePrune, ModeWrite}

// ParseMode parses a mode string into Mode.
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modeRegistry[mode]; ok {
		return mode, nil
	}
	return "", fmt.Errorf("unknown mode: %q (valid: %s)", s, ValidModes())
}

// GetModeInfo returns the metadata for a mode.
func GetModeInfo(mode Mode) (*ModeInfo, bool) {
	info, ok := modeRegistry[mode]
	return info, ok
}

// ValidModes returns a comma-separated list of valid mode names.
func ValidModes() string {
	names := make([]string, len(modeOrder))
	for i, m := range modeOrder {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// AllModes returns all registered modes in display order.
func AllModes() []*ModeInfo {
	out := make([]*ModeInfo, 0, len(modeOrder))
	for _, m := range modeOrder {
		out = append(out, modeRegistry[m])
	}
	return out
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}
