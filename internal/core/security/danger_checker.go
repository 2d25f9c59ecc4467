package security

import (
	"strings"
)

// KeywordChecker finds the policy's dangerous keywords in a command
// subject. Matches are reported for logging only; they do not change the
// authorization decision.
type KeywordChecker struct {
	keywords []string
}

// NewKeywordChecker creates a checker for the policy's keyword list.
func NewKeywordChecker(policy *AllowlistPolicy) *KeywordChecker {
	var keywords []string
	if policy != nil {
		for _, k := range policy.DangerousKeywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
	}
	return &KeywordChecker{keywords: keywords}
}

// Match returns the keywords contained in subject, in policy order.
func (kc *KeywordChecker) Match(subject string) []string {
	subject = strings.ToLower(subject)

	var matched []string
	for _, k := range kc.keywords {
		if strings.Contains(subject, k) {
			matched = append(matched, k)
		}
	}
	return matched
}
