// Package intent turns raw utterance text into a structured command intent.
//
// Classification is a fixed, ordered list of rules. The first rule that
// matches decides the intent, so a lower-priority interpretation can never
// mask a higher-priority one ("run screenshot.exe" runs a program, it does
// not take a screenshot). Matching folds ASCII case only, which keeps byte
// offsets of the lowered text aligned with the original and lets arguments
// keep their original case.
package intent

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const quoteChars = "\"'`“”‘’"

// maxDelaySeconds is the longest delay a time.Duration can hold.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

type rule struct {
	name  string
	match func(text string) (Intent, bool)
}

// rules is evaluated top to bottom. Reordering it changes policy.
var rules = []rule{
	{name: "run", match: matchRun},
	{name: "open file", match: matchOpenFile},
	{name: "delete file", match: matchDeleteFile},
	{name: "screenshot", match: matchScreenshot},
	{name: "type", match: matchType},
	{name: "power", match: matchPower},
	{name: "open url", match: matchOpenURL},
	{name: "weather", match: matchWeather},
	{name: "search", match: matchSearch},
	{name: "reminder", match: matchReminder},
}

// RuleNames returns the rule names in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// Classify maps an utterance to exactly one intent. It never fails:
// anything no rule claims is Unrecognized.
func Classify(utterance string) Intent {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Unrecognized{}
	}

	for _, r := range rules {
		if in, ok := r.match(text); ok {
			return in
		}
	}

	return Unrecognized{}
}

func matchRun(text string) (Intent, bool) {
	rest, ok := cutPrefixFold(text, "run ")
	if !ok {
		return nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, false
	}

	program := strings.Trim(fields[0], quoteChars)
	if program == "" {
		return nil, false
	}

	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}

	return RunProgram{Program: program, Args: args}, true
}

func matchOpenFile(text string) (Intent, bool) {
	path, ok := pathArgument(text, "open file ")
	if !ok {
		return nil, false
	}
	return OpenFile{Path: path}, true
}

func matchDeleteFile(text string) (Intent, bool) {
	path, ok := pathArgument(text, "delete file ")
	if !ok {
		return nil, false
	}
	return DeleteFile{Path: path}, true
}

func matchScreenshot(text string) (Intent, bool) {
	if !containsFold(text, "screenshot") {
		return nil, false
	}
	return Screenshot{}, true
}

func matchType(text string) (Intent, bool) {
	rest, ok := cutPrefixFold(text, "type ")
	if !ok {
		return nil, false
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, false
	}

	return TypeText{Text: rest}, true
}

func matchPower(text string) (Intent, bool) {
	switch {
	case containsFold(text, "shutdown"):
		return PowerOp{Op: PowerShutdown}, true
	case containsFold(text, "restart"):
		return PowerOp{Op: PowerRestart}, true
	}
	return nil, false
}

func matchOpenURL(text string) (Intent, bool) {
	site, ok := phraseArgument(text, "open ")
	if !ok {
		return nil, false
	}
	return OpenURL{Site: site}, true
}

func matchWeather(text string) (Intent, bool) {
	city, ok := phraseArgument(text, "weather in ")
	if !ok {
		return nil, false
	}
	return Weather{City: city}, true
}

func matchSearch(text string) (Intent, bool) {
	query, ok := phraseArgument(text, "search for ")
	if !ok {
		return nil, false
	}
	return WebSearch{Query: query}, true
}

// matchReminder handles "remind me to <text> in <N>". Once the prefix is
// present the rule always claims the utterance; a bad delay becomes an
// Unrecognized carrying ErrReminderDelay.
func matchReminder(text string) (Intent, bool) {
	rest, ok := cutFirstFold(text, "remind me to ")
	if !ok {
		return nil, false
	}

	i := strings.Index(lowerASCII(rest), " in ")
	if i < 0 {
		return Unrecognized{Err: ErrReminderDelay}, true
	}

	reminder := strings.TrimSpace(rest[:i])
	fields := strings.Fields(rest[i+len(" in "):])
	if len(fields) == 0 {
		return Unrecognized{Err: ErrReminderDelay}, true
	}

	seconds, err := strconv.ParseInt(trimSentence(fields[0]), 10, 64)
	if err != nil || seconds < 0 || seconds > maxDelaySeconds {
		return Unrecognized{Err: ErrReminderDelay}, true
	}

	return SetReminder{Text: reminder, Delay: time.Duration(seconds) * time.Second}, true
}

// pathArgument extracts a path following a prefix keyword. Surrounding
// quotes are stripped; nothing is unescaped.
func pathArgument(text, prefix string) (string, bool) {
	rest, ok := cutPrefixFold(text, prefix)
	if !ok {
		return "", false
	}

	path := strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), quoteChars))
	if path == "" {
		return "", false
	}

	return path, true
}

// phraseArgument extracts the text after the first occurrence of keyword,
// dropping punctuation a transcriber adds at the end of a sentence.
func phraseArgument(text, keyword string) (string, bool) {
	rest, ok := cutFirstFold(text, keyword)
	if !ok {
		return "", false
	}

	arg := trimSentence(rest)
	if arg == "" {
		return "", false
	}

	return arg, true
}

func trimSentence(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".!?,;:"))
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || lowerASCII(s[:len(prefix)]) != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

func cutFirstFold(s, keyword string) (string, bool) {
	i := strings.Index(lowerASCII(s), keyword)
	if i < 0 {
		return "", false
	}
	return s[i+len(keyword):], true
}

func containsFold(s, keyword string) bool {
	return strings.Contains(lowerASCII(s), keyword)
}

// lowerASCII lowercases A-Z only, so the result has the same byte length
// as s.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
