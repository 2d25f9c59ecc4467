package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
)

func TestAuthorize(t *testing.T) {
	policy := &AllowlistPolicy{Programs: []string{"notepad"}}

	tests := []struct {
		name    string
		intent  intent.Intent
		verdict Verdict
	}{
		{"allowlisted program", intent.RunProgram{Program: "notepad.exe"}, Allowed},
		{"unlisted program", intent.RunProgram{Program: "regedit"}, RequiresConfirmation},
		{"delete without allow_delete", intent.DeleteFile{Path: "/tmp/a"}, RequiresConfirmation},
		{"open file", intent.OpenFile{Path: "/tmp/a"}, Allowed},
		{"screenshot", intent.Screenshot{}, Allowed},
		{"type text", intent.TypeText{Text: "hi"}, Allowed},
		{"shutdown", intent.PowerOp{Op: intent.PowerShutdown}, RequiresConfirmation},
		{"open url", intent.OpenURL{Site: "github"}, Allowed},
		{"weather", intent.Weather{City: "Oslo"}, Allowed},
		{"search", intent.WebSearch{Query: "go"}, Allowed},
		{"reminder", intent.SetReminder{Text: "x", Delay: time.Second}, Allowed},
		{"unrecognized", intent.Unrecognized{}, Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.verdict, Authorize(tt.intent, policy).Verdict)
		})
	}
}

func TestAuthorize_AllowDelete(t *testing.T) {
	d := Authorize(intent.DeleteFile{Path: "/tmp/a"}, &AllowlistPolicy{AllowDelete: true})
	assert.Equal(t, Allowed, d.Verdict)
}

func TestAuthorize_PowerIgnoresAllowlist(t *testing.T) {
	permissive := &AllowlistPolicy{
		Programs:    []string{"shutdown", "restart", "power", "s"},
		AllowDelete: true,
	}

	for _, op := range []intent.PowerKind{intent.PowerShutdown, intent.PowerRestart} {
		d := Authorize(intent.PowerOp{Op: op}, permissive)
		assert.True(t, d.NeedsConfirmation(), string(op))
		assert.NotEmpty(t, d.Reason)
	}
}

func TestAuthorize_NilPolicyIsRestrictive(t *testing.T) {
	assert.Equal(t, RequiresConfirmation, Authorize(intent.RunProgram{Program: "ls"}, nil).Verdict)
	assert.Equal(t, RequiresConfirmation, Authorize(intent.DeleteFile{Path: "x"}, nil).Verdict)
}
