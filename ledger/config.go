package ledger

import (
	"github.com/tos-network/ctoken/params"
)

// Config holds the tunables of a reference ledger.
type Config struct {
	// DataDir is the goleveldb directory. Empty keeps state in memory.
	DataDir       string
	DatabaseCache int `toml:",omitempty"`

	// CheckpointWindow is how many recent checkpoints a bundle may pin.
	CheckpointWindow int
	// ReceiptCacheSize bounds how many receipts stay queryable.
	ReceiptCacheSize int

	MaxBundleSize        int
	MaxInstructions      int
	LamportsPerSignature uint64
	ComputeUnitLimit     uint64
}

// DefaultConfig contains the reference ledger defaults.
var DefaultConfig = Config{
	CheckpointWindow:     150,
	ReceiptCacheSize:     4096,
	MaxBundleSize:        params.MaxBundleSize,
	MaxInstructions:      params.MaxInstructionsPerBundle,
	LamportsPerSignature: params.DefaultLamportsPerSignature,
	ComputeUnitLimit:     params.ComputeUnitLimitDefault,
}

// sanitize fills zero fields from DefaultConfig.
func (c Config) sanitize() Config {
	if c.CheckpointWindow <= 0 {
		c.CheckpointWindow = DefaultConfig.CheckpointWindow
	}
	if c.ReceiptCacheSize <= 0 {
		c.ReceiptCacheSize = DefaultConfig.ReceiptCacheSize
	}
	if c.MaxBundleSize <= 0 {
		c.MaxBundleSize = DefaultConfig.MaxBundleSize
	}
	if c.MaxInstructions <= 0 {
		c.MaxInstructions = DefaultConfig.MaxInstructions
	}
	if c.LamportsPerSignature == 0 {
		c.LamportsPerSignature = DefaultConfig.LamportsPerSignature
	}
	if c.ComputeUnitLimit == 0 || c.ComputeUnitLimit > params.ComputeUnitLimitMax {
		c.ComputeUnitLimit = DefaultConfig.ComputeUnitLimit
	}
	return c
}
