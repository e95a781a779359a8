// Package rules implements the behavior-rule matcher: a deterministic,
// stateless scan of configured (condition, response) pairs against the
// incoming user message. A matched rule short-circuits the completion
// pipeline entirely.
package rules

import (
	"sort"
	"strings"

	"nochatbuilder/models"
)

// Match returns the response of the first rule whose condition appears in
// the user message, compared case-insensitively as a substring. Rules are
// evaluated in Position order; at most one rule fires.
func Match(userMessage string, botRules []models.Rule) (string, bool) {
	if strings.TrimSpace(userMessage) == "" || len(botRules) == 0 {
		return "", false
	}
	ordered := append([]models.Rule(nil), botRules...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	haystack := strings.ToLower(userMessage)
	for _, r := range ordered {
		cond := strings.ToLower(strings.TrimSpace(r.Condition))
		if cond == "" {
			continue
		}
		if strings.Contains(haystack, cond) {
			return r.Response, true
		}
	}
	return "", false
}
