package models

// AllModels lists every entity managed by AutoMigrate, in dependency order
func AllModels() []any {
	return []any{
		&Lead{},
		&AgentScript{},
		&CallRecord{},
	}
}
