package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory, it is meant
// to be used in tests to assert that something was (or wasn't) reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.counts[id] = count
}

// Reports returns the recorded reports of the given kind whose id contains `idPart`.
// An empty kind matches every kind.
func (r *Recorder) Reports(kind, idPart string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if kind != "" && rep.Kind != kind {
			continue
		}
		if !strings.Contains(rep.ID, idPart) {
			continue
		}
		out = append(out, rep)
	}
	return out
}

// Count returns the last value reported through ReportCount for `id`.
func (r *Recorder) Count(id string) (int64, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n, ok := r.counts[id]
	return n, ok
}
