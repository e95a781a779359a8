// Package redact strips personally identifying content from user-authored
// text before it is shown to privileged viewers. It is best-effort and
// fail-open: a panic anywhere in the pipeline returns the original text,
// because redaction is a display enhancement and must never block message
// delivery. Callers needing a hard privacy guarantee cannot rely on this
// package alone.
package redact

import (
	"log"
	"regexp"
	"strings"

	"nochatbuilder/models"
)

// Marker replaces every detected PII span.
const Marker = "[REDACTED]"

// nameToken matches a capitalized word shaped like a personal name. The
// second character must be lowercase so the marker itself (all caps) can
// never re-match, which keeps the pipeline idempotent.
const nameToken = `[A-Z][a-z][A-Za-z'\-]*`

var (
	// multi-word capitalized sequences, e.g. "Alex Johnson", "Mary Jane Watson"
	namePhraseRe = regexp.MustCompile(`\b` + nameToken + `(?:[ \t]+` + nameToken + `)+\b`)
	honorificRe  = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?[ \t]+` + nameToken + `\b`)

	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	ssnRe      = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	// a leading \b cannot anchor numbers written with "+" or "(", so the
	// non-digit prefix is captured and preserved in the replacement
	phoneRe    = regexp.MustCompile(`(^|[^\d])((?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})\b`)
	ssnPlainRe = regexp.MustCompile(`\b\d{9}\b`)
	dateRes    = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.?[ \t]+\d{1,2}(?:st|nd|rd|th)?,?[ \t]+\d{4}\b`),
	}

	// self-identification phrasings; the name token is the capture group
	introRe   = regexp.MustCompile(`((?i:my name is|i am|i'm|call me|this is)[ \t]+)(` + nameToken + `)`)
	signoffRe = regexp.MustCompile(`((?i:regards|sincerely|best wishes|thanks|thank you|cheers),?[ \t]*\n?[ \t]*)(` + nameToken + `)`)
)

// Redact applies all passes in order and returns the transformed text.
// Any internal panic is swallowed and the original text returned.
func Redact(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[redact] recovered: %v", r)
			out = text
		}
	}()
	out = text
	out = redactNames(out)
	out = redactPatterns(out)
	out = redactIntroductions(out)
	return out
}

// Turns redacts the user-authored side of a conversation only. Bot
// responses are operator-controlled and stay verbatim for quality review.
func Turns(msgs []models.Message) []models.Message {
	redacted := append([]models.Message(nil), msgs...)
	for i := range redacted {
		if redacted[i].IsUser {
			redacted[i].Content = Redact(redacted[i].Content)
		}
	}
	return redacted
}

// redactNames is the named-entity heuristic pass: multi-word capitalized
// phrases are treated as person names and replaced both as whole phrases
// and as individual tokens, so "Alex Johnson ... thanks, Alex" loses every
// occurrence of "Alex".
func redactNames(text string) string {
	tokens := map[string]struct{}{}
	for _, phrase := range namePhraseRe.FindAllString(text, -1) {
		for _, tok := range strings.Fields(phrase) {
			tokens[tok] = struct{}{}
		}
	}
	out := namePhraseRe.ReplaceAllString(text, Marker)
	out = honorificRe.ReplaceAllString(out, Marker)
	for tok := range tokens {
		tokRe, err := regexp.Compile(`\b` + regexp.QuoteMeta(tok) + `\b`)
		if err != nil {
			continue
		}
		out = tokRe.ReplaceAllString(out, Marker)
	}
	return out
}

// redactPatterns handles structured PII: emails, phone numbers in the
// common separator conventions, SSN-shaped sequences, and dates.
func redactPatterns(text string) string {
	out := emailRe.ReplaceAllString(text, Marker)
	out = ssnRe.ReplaceAllString(out, Marker)
	out = phoneRe.ReplaceAllString(out, `${1}`+Marker)
	out = ssnPlainRe.ReplaceAllString(out, Marker)
	for _, re := range dateRes {
		out = re.ReplaceAllString(out, Marker)
	}
	return out
}

// redactIntroductions catches short or uncommon names the heuristic pass
// misses, in phrasings like "my name is X" or a "regards, X" sign-off.
// The phrasing itself is kept; only the captured name is replaced.
func redactIntroductions(text string) string {
	out := introRe.ReplaceAllString(text, `${1}`+Marker)
	out = signoffRe.ReplaceAllString(out, `${1}`+Marker)
	return out
}
