package types

// Version is the canonical project version.
// The CLI, the runner program and the wire protocol share this version.
const Version = "0.3.0"

// ProtocolVersion is the envelope wire format version.
// Bumped only when an envelope field changes meaning.
const ProtocolVersion = 1
