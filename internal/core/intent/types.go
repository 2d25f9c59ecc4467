package intent

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies an intent variant. The values double as the action kind
// written to the audit log.
type Kind string

const (
	KindRunProgram   Kind = "run_program"
	KindOpenFile     Kind = "open_file"
	KindDeleteFile   Kind = "delete_file"
	KindScreenshot   Kind = "screenshot"
	KindTypeText     Kind = "type_text"
	KindPowerOp      Kind = "power"
	KindOpenURL      Kind = "open_url"
	KindWeather      Kind = "weather"
	KindWebSearch    Kind = "web_search"
	KindSetReminder  Kind = "set_reminder"
	KindUnrecognized Kind = "unrecognized"
)

// ErrReminderDelay is carried by Unrecognized when a reminder utterance has a
// missing or non-numeric delay.
var ErrReminderDelay = errors.New("reminder delay is not a number of seconds")

// Intent is the classified meaning of one utterance. The set of
// implementations is closed.
type Intent interface {
	Kind() Kind
	// Subject is the command text or path recorded in the audit log.
	Subject() string
	isIntent()
}

// RunProgram starts a local program.
type RunProgram struct {
	Program string
	Args    []string
}

// OpenFile opens a file with the platform default handler.
type OpenFile struct {
	Path string
}

// DeleteFile removes a file or directory tree.
type DeleteFile struct {
	Path string
}

// Screenshot captures the screen.
type Screenshot struct{}

// TypeText injects keystrokes.
type TypeText struct {
	Text string
}

// PowerKind selects the power operation.
type PowerKind string

const (
	PowerShutdown PowerKind = "shutdown"
	PowerRestart  PowerKind = "restart"
)

// PowerOp shuts down or restarts the machine.
type PowerOp struct {
	Op PowerKind
}

// OpenURL opens a website in the browser.
type OpenURL struct {
	Site string
}

// Weather asks for the current temperature in a city.
type Weather struct {
	City string
}

// WebSearch runs a browser search.
type WebSearch struct {
	Query string
}

// SetReminder schedules a reminder.
type SetReminder struct {
	Text  string
	Delay time.Duration
}

// Unrecognized means the utterance is not a command. Err is set when the
// utterance looked like a command but its argument could not be parsed.
type Unrecognized struct {
	Err error
}

func (RunProgram) Kind() Kind   { return KindRunProgram }
func (OpenFile) Kind() Kind     { return KindOpenFile }
func (DeleteFile) Kind() Kind   { return KindDeleteFile }
func (Screenshot) Kind() Kind   { return KindScreenshot }
func (TypeText) Kind() Kind     { return KindTypeText }
func (PowerOp) Kind() Kind      { return KindPowerOp }
func (OpenURL) Kind() Kind      { return KindOpenURL }
func (Weather) Kind() Kind      { return KindWeather }
func (WebSearch) Kind() Kind    { return KindWebSearch }
func (SetReminder) Kind() Kind  { return KindSetReminder }
func (Unrecognized) Kind() Kind { return KindUnrecognized }

func (i RunProgram) Subject() string {
	return strings.Join(append([]string{i.Program}, i.Args...), " ")
}

func (i OpenFile) Subject() string    { return i.Path }
func (i DeleteFile) Subject() string  { return i.Path }
func (Screenshot) Subject() string    { return "screen" }
func (i TypeText) Subject() string    { return i.Text }
func (i PowerOp) Subject() string     { return string(i.Op) }
func (i OpenURL) Subject() string     { return i.Site }
func (i Weather) Subject() string     { return i.City }
func (i WebSearch) Subject() string   { return i.Query }
func (i SetReminder) Subject() string { return i.Text }
func (Unrecognized) Subject() string  { return "" }

func (RunProgram) isIntent()   {}
func (OpenFile) isIntent()     {}
func (DeleteFile) isIntent()   {}
func (Screenshot) isIntent()   {}
func (TypeText) isIntent()     {}
func (PowerOp) isIntent()      {}
func (OpenURL) isIntent()      {}
func (Weather) isIntent()      {}
func (WebSearch) isIntent()    {}
func (SetReminder) isIntent()  {}
func (Unrecognized) isIntent() {}
