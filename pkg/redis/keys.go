package redis

import "fmt"

// Key construction helpers for per-setup persisted state

// SetupStateKey returns the key for a setup's runtime flags and shaping selection (hash)
// Pattern: setup:state:{setup_id}
func SetupStateKey(setupID string) string {
	return fmt.Sprintf("setup:state:%s", setupID)
}

// SetupOverridesKey returns the key for a setup's per-light overrides (hash, field per light)
// Pattern: setup:overrides:{setup_id}
func SetupOverridesKey(setupID string) string {
	return fmt.Sprintf("setup:overrides:%s", setupID)
}
