package model

// VersionInfo contains version and feature information for the application.
type VersionInfo struct {
	AppVersion       string          `json:"app_version"`
	DbVersion        string          `json:"db_version"`
	Features         map[string]bool `json:"features"`
	MigrationNeeded  bool            `json:"migration_needed"`
	MigrationMessage *string         `json:"migration_message,omitempty"`
}

// RefreshResult reports a price refresh followed by a daily value rebuild.
type RefreshResult struct {
	Symbols     []string `json:"symbols"`
	Refreshed   int      `json:"refreshed"`
	Failed      []string `json:"failed"`
	DailyValues int      `json:"dailyValues"`
}
