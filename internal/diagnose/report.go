package diagnose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteReport serializes the report to a timestamped JSON file in dir and
// returns the path. An empty dir disables report writing.
func WriteReport(dir string, r *Report) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	name := fmt.Sprintf("remedy-report-%s.json", r.StartedAt.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// LatestReport returns the newest remedy-report-*.json in dir, or an empty
// string when none exist.
func LatestReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "remedy-report-*.json"))
	if err != nil || len(matches) == 0 {
		return "", err
	}
	var newest string
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest, newestMod = m, info.ModTime()
		}
	}
	return newest, nil
}
