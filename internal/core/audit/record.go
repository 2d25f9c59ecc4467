// Package audit is the append-only record of authorization decisions and
// executed actions.
package audit

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result an audit record captures.
type Outcome string

const (
	OutcomeExecuted           Outcome = "executed"
	OutcomeExecuteAdmin       Outcome = "execute_admin"
	OutcomeDenied             Outcome = "denied"
	OutcomeFailed             Outcome = "failed"
	OutcomeConfirmed          Outcome = "confirmed"
	OutcomeConfirmationDenied Outcome = "confirmation_denied"
	OutcomeAdminConfirmed     Outcome = "admin_confirmed"
	OutcomeAdminFailed        Outcome = "admin_failed"
)

// Outcomes lists every outcome in a stable order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeExecuted, OutcomeExecuteAdmin, OutcomeDenied, OutcomeFailed,
		OutcomeConfirmed, OutcomeConfirmationDenied,
		OutcomeAdminConfirmed, OutcomeAdminFailed,
	}
}

// Valid reports whether o is one of the defined outcomes.
func (o Outcome) Valid() bool {
	for _, known := range Outcomes() {
		if o == known {
			return true
		}
	}
	return false
}

// Level is the severity column of a log line.
func (o Outcome) Level() string {
	switch o {
	case OutcomeFailed:
		return "ERROR"
	case OutcomeDenied, OutcomeConfirmationDenied, OutcomeAdminFailed:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Record is one immutable audit entry.
type Record struct {
	Timestamp time.Time
	// Kind is the action kind, e.g. "delete_file".
	Kind    string
	Subject string
	Outcome Outcome
	// Err is the failure detail, if any.
	Err string
}

const timeLayout = "2006-01-02 15:04:05,000"

// Line renders the record as a single log line:
//
//	2006-01-02 15:04:05,000 - INFO - ACTION: run_program.executed | INFO: notepad
func (r Record) Line() string {
	info := escape(r.Subject)
	if r.Err != "" {
		info += " (error: " + escape(r.Err) + ")"
	}

	return fmt.Sprintf("%s - %s - ACTION: %s.%s | INFO: %s",
		r.Timestamp.Format(timeLayout), r.Outcome.Level(), r.Kind, r.Outcome, info)
}

// ParseLine is the inverse of Line.
func ParseLine(line string) (Record, error) {
	parts := strings.SplitN(line, " - ", 3)
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("malformed audit line: %q", line)
	}

	ts, err := time.ParseInLocation(timeLayout, parts[0], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("malformed audit timestamp: %w", err)
	}

	body, ok := strings.CutPrefix(parts[2], "ACTION: ")
	if !ok {
		return Record{}, fmt.Errorf("malformed audit line: missing ACTION: %q", line)
	}

	action, info, ok := strings.Cut(body, " | INFO: ")
	if !ok {
		return Record{}, fmt.Errorf("malformed audit line: missing INFO: %q", line)
	}

	dot := strings.LastIndexByte(action, '.')
	if dot < 0 {
		return Record{}, fmt.Errorf("malformed audit action: %q", action)
	}

	rec := Record{
		Timestamp: ts,
		Kind:      action[:dot],
		Outcome:   Outcome(action[dot+1:]),
	}
	if !rec.Outcome.Valid() {
		return Record{}, fmt.Errorf("unknown audit outcome: %q", rec.Outcome)
	}

	if i := strings.LastIndex(info, " (error: "); i >= 0 && strings.HasSuffix(info, ")") {
		rec.Err = unescape(info[i+len(" (error: ") : len(info)-1])
		info = info[:i]
	}
	rec.Subject = unescape(info)

	return rec, nil
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// escape keeps a record on one line whatever the subject contains.
func escape(s string) string   { return escaper.Replace(s) }
func unescape(s string) string { return unescaper.Replace(s) }
