package ir

// Version constants for the configuration schema and engine.
const (
	// IRVersion is the compiled configuration schema version.
	IRVersion = "1"

	// EngineVersion is the aircore engine version.
	EngineVersion = "0.1.0"
)
