package maintenance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// LoadHistory loads check history from a JSON file. A missing file yields
// an empty history.
func LoadHistory(path string) (map[string]*AreaHistory, error) {
	history := make(map[string]*AreaHistory)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return history, nil
	}
	if err != nil {
		return nil, err
	}

	var list []AreaHistory
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for i := range list {
		history[list[i].Area] = &list[i]
	}
	return history, nil
}

// SaveHistory saves check history to a JSON file, sorted by area.
func SaveHistory(path string, history map[string]*AreaHistory) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	list := make([]AreaHistory, 0, len(history))
	for _, h := range history {
		list = append(list, *h)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Area < list[j].Area })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// updateHistory folds a completed check into the history.
func (s *Scheduler) updateHistory(result AreaResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.history[result.Area]
	if !exists {
		h = &AreaHistory{Area: result.Area}
		s.history[result.Area] = h
	}

	h.LastRun = result.EndTime
	h.LastDuration = result.EndTime.Sub(result.StartTime).Milliseconds()
	h.LastStatus = result.Status()
	h.LastIssues = nil
	h.RunCount++

	switch h.LastStatus {
	case StatusOK:
		h.OKCount++
	case StatusIssues:
		h.IssueCount++
		h.LastIssues = append([]string(nil), result.Report.Issues...)
	default:
		h.FailureCount++
		h.LastIssues = []string{result.Error.Error()}
	}

	s.logger.Debug("maintenance: history updated",
		slog.String("area", result.Area),
		slog.String("status", h.LastStatus),
		slog.Int64("duration_ms", h.LastDuration),
		slog.Int("runs", h.RunCount))
}
