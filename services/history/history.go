package history

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one line of the append-only run log: one entry per extraction
// request, whatever its outcome.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Version    string    `json:"version"`
	Brand      string    `json:"brand"`
	Domain     string    `json:"domain"`
	Markets    []string  `json:"markets,omitempty"`
	Status     string    `json:"status"`
	Offers     int       `json:"offers"`
	Products   int       `json:"products"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// SessionSummary aggregates the runs of one session within the lookback
// window.
type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Runs        int       `json:"runs"`
	Errors      int       `json:"errors"`
	TotalOffers int       `json:"total_offers"`
	Domains     []string  `json:"domains"`
}

// NewSessionID mints a session identifier for request correlation.
func NewSessionID() string {
	return uuid.NewString()
}

// Store appends run records to a JSON-lines file and answers lookback
// queries over it. The file is the only persistence this service has; the
// core never reads it on the extraction path.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to path. The directory is created on the
// first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append writes one record as a JSON line. Failures are returned, not fatal;
// callers log and move on since history is advisory.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// SessionSummaries aggregates records newer than the lookback window by
// session, most recently active first. Malformed lines are skipped.
func (s *Store) SessionSummaries(lookback time.Duration) ([]SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionSummary{}, nil
		}
		return nil, err
	}
	defer f.Close()

	cutoff := time.Now().Add(-lookback)
	bySession := make(map[string]*SessionSummary)
	domainsSeen := make(map[string]map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			continue
		}

		summary, ok := bySession[rec.SessionID]
		if !ok {
			summary = &SessionSummary{SessionID: rec.SessionID, FirstSeen: rec.Timestamp, LastSeen: rec.Timestamp}
			bySession[rec.SessionID] = summary
			domainsSeen[rec.SessionID] = make(map[string]bool)
		}

		if rec.Timestamp.Before(summary.FirstSeen) {
			summary.FirstSeen = rec.Timestamp
		}
		if rec.Timestamp.After(summary.LastSeen) {
			summary.LastSeen = rec.Timestamp
		}
		summary.Runs++
		summary.TotalOffers += rec.Offers
		if rec.Status != "ok" {
			summary.Errors++
		}
		if rec.Domain != "" && !domainsSeen[rec.SessionID][rec.Domain] {
			domainsSeen[rec.SessionID][rec.Domain] = true
			summary.Domains = append(summary.Domains, rec.Domain)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(bySession))
	for _, summary := range bySession {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}
