package app

// DefaultMaxPlies caps a match that never reaches a natural end. Reaching it is a draw.
// Keep this centralized so tests or local runs can adjust the rule without touching multiple call sites.
const DefaultMaxPlies = 600

// ActionTimeout is the move-log action recorded when a seat runs out of time.
const ActionTimeout = "timeout"
