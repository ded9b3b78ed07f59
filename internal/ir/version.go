package ir

// Version constants for the persisted encoding and the tool itself.
const (
	// IRVersion is the version of the canonical record encoding.
	IRVersion = "1"

	// EngineVersion is the xcmreserve version.
	EngineVersion = "0.1.0"
)
