package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

type Level string

const (
	LevelBroken  Level = "broken"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
	LevelCount   Level = "count"
)

// Report is a single call captured by Recorder.
type Report struct {
	Level  Level
	ID     string
	Params []any
}

// String renders the report the way a log line would contain it.
func (r Report) String() string {
	var out strings.Builder
	out.WriteString(string(r.Level))
	out.WriteString(" ")
	out.WriteString(r.ID)
	for _, p := range r.Params {
		out.WriteString(" ")
		out.WriteString(fmt.Sprintf("%+v", p))
	}
	return out.String()
}

// Recorder implements API by keeping every report in memory, it is meant for
// tests that assert on what was (or was not) reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) record(level Level, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(LevelBroken, id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(LevelWarning, id, params)
}

func (r *Recorder) ReportInfo(id string, params ...any) {
	r.record(LevelInfo, id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(LevelDebug, msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(LevelCount, id, []any{count})
}

// Reports returns a copy of everything recorded so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// IDs returns the ids of the recorded reports with the given level.
func (r *Recorder) IDs(level Level) []string {
	var ids []string
	for _, report := range r.Reports() {
		if report.Level == level {
			ids = append(ids, report.ID)
		}
	}
	return ids
}

// Contains reports whether any recorded report renders `needle`.
func (r *Recorder) Contains(needle string) bool {
	for _, report := range r.Reports() {
		if strings.Contains(report.String(), needle) {
			return true
		}
	}
	return false
}
