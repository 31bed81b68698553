package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rpcgolden/internal/runner"
)

// reportTimestampFormat names report files so that they sort chronologically.
const reportTimestampFormat = "20060102-150405"

// saveDetailedReport writes the suite result as indented JSON into dir and
// returns the file path.
func saveDetailedReport(dir string, suite runner.SuiteResult) (string, error) {
	// Create report directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := suite.StartTime.Format(reportTimestampFormat)
	if suite.StartTime.IsZero() {
		timestamp = time.Now().Format(reportTimestampFormat)
	}
	fullPath := filepath.Join(dir, fmt.Sprintf("rpcgolden-report-%s.json", timestamp))

	jsonData, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return fullPath, nil
}
