package workers

import "stay_scout/models"

// LogFunc persists a worker event to the scrape_logs table.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger drops events. Workers default to it until the daemon injects a
// store-backed logger.
var NoOpLogger LogFunc = func(models.LogLevel, string, string) {}
