package security

import (
	"fmt"

	"github.com/Lin-Jiong-HDU/jarvis/internal/core/intent"
)

// Verdict is the outcome of an authorization check.
type Verdict string

const (
	Allowed              Verdict = "allowed"
	RequiresConfirmation Verdict = "requires_confirmation"
	Denied               Verdict = "denied"
)

// Decision is the result of Authorize.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// NeedsConfirmation reports whether the operator must confirm.
func (d Decision) NeedsConfirmation() bool {
	return d.Verdict == RequiresConfirmation
}

// Authorize derives the decision for an intent from the policy alone. It
// has no side effects.
func Authorize(in intent.Intent, policy *AllowlistPolicy) Decision {
	if policy == nil {
		policy = DefaultAllowlist()
	}

	switch in := in.(type) {
	case intent.RunProgram:
		if IsAllowedProgram(policy, in.Program) {
			return Decision{Verdict: Allowed}
		}
		return Decision{
			Verdict: RequiresConfirmation,
			Reason:  fmt.Sprintf("%s is not on the allowlist", NormalizeProgram(in.Program)),
		}

	case intent.DeleteFile:
		if policy.AllowDelete {
			return Decision{Verdict: Allowed}
		}
		return Decision{
			Verdict: RequiresConfirmation,
			Reason:  "deleting files requires confirmation",
		}

	case intent.PowerOp:
		// No allowlist entry can bypass this.
		return Decision{
			Verdict: RequiresConfirmation,
			Reason:  fmt.Sprintf("%s affects the whole machine", in.Op),
		}

	case intent.OpenFile, intent.Screenshot, intent.TypeText,
		intent.OpenURL, intent.Weather, intent.WebSearch, intent.SetReminder:
		return Decision{Verdict: Allowed}

	default:
		return Decision{Verdict: Denied, Reason: "not a command"}
	}
}
