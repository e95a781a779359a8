package redact

import (
	"strings"
	"testing"

	"nochatbuilder/models"
)

func TestRedactSelfIntroduction(t *testing.T) {
	in := "My name is Alex, email alex@x.com, call 555-123-4567"
	out := Redact(in)

	for _, leaked := range []string{"Alex", "alex@x.com", "555-123-4567"} {
		if strings.Contains(out, leaked) {
			t.Errorf("redacted output still contains %q: %s", leaked, out)
		}
	}
	if !strings.Contains(out, Marker) {
		t.Errorf("expected marker in output: %s", out)
	}
}

func TestRedactPasses(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		leaked []string
	}{
		{"full name phrase and loose token", "Alex Johnson wrote this. Thanks, Alex", []string{"Alex", "Johnson"}},
		{"honorific", "Please ask Dr. Smith about it", []string{"Smith"}},
		{"email", "reach me at jane.doe+test@mail.example.org today", []string{"jane.doe+test@mail.example.org"}},
		{"phone with dots", "call 555.123.4567 now", []string{"555.123.4567"}},
		{"phone with parens", "it's (555) 123-4567", []string{"(555) 123-4567"}},
		{"phone with country code", "+1 555-123-4567 anytime", []string{"555-123-4567"}},
		{"ssn", "ssn is 123-45-6789 ok", []string{"123-45-6789"}},
		{"ssn no separators", "ssn 123456789 ok", []string{"123456789"}},
		{"slash date", "born 12/31/1988", []string{"12/31/1988"}},
		{"iso date", "since 1988-12-31", []string{"1988-12-31"}},
		{"written date", "on January 5, 1990 I moved", []string{"January 5, 1990"}},
		{"call me", "you can call me Bo whenever", []string{"Bo"}},
		{"sign-off", "see you soon\nRegards,\nZed", []string{"Zed"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Redact(tc.in)
			for _, leaked := range tc.leaked {
				if strings.Contains(out, leaked) {
					t.Errorf("output still contains %q: %s", leaked, out)
				}
			}
			if !strings.Contains(out, Marker) {
				t.Errorf("expected marker in output: %s", out)
			}
		})
	}
}

func TestRedactPhoneIgnoresLongerDigitRuns(t *testing.T) {
	// a phone-shaped window inside a longer digit run is not a phone;
	// matching must not chew off its tail
	out := Redact("tracking code 4111222233334 here, call 555-123-4567")
	if !strings.Contains(out, "4111222233334") {
		t.Errorf("long digit run was mangled: %s", out)
	}
	if strings.Contains(out, "555-123-4567") {
		t.Errorf("phone number survived: %s", out)
	}
}

func TestRedactIdempotent(t *testing.T) {
	inputs := []string{
		"My name is Alex, email alex@x.com, call 555-123-4567",
		"Alex Johnson met Dr. Smith on 12/31/1988",
		"nothing sensitive here at all",
		"Regards,\nAlexandra",
		"",
	}
	for _, in := range inputs {
		once := Redact(in)
		twice := Redact(once)
		if once != twice {
			t.Errorf("redact not idempotent for %q:\n once: %s\ntwice: %s", in, once, twice)
		}
	}
}

func TestRedactLeavesCleanTextAlone(t *testing.T) {
	in := "what are your opening hours on weekdays?"
	if out := Redact(in); out != in {
		t.Errorf("clean text was modified: %s", out)
	}
}

func TestTurnsRedactsUserSideOnly(t *testing.T) {
	msgs := []models.Message{
		{IsUser: true, Content: "my name is Alex"},
		{IsUser: false, Content: "Nice to meet you, Alex!"},
	}
	out := Turns(msgs)

	if strings.Contains(out[0].Content, "Alex") {
		t.Errorf("user message not redacted: %s", out[0].Content)
	}
	if out[1].Content != "Nice to meet you, Alex!" {
		t.Errorf("bot message must stay verbatim, got: %s", out[1].Content)
	}
	// input slice untouched
	if msgs[0].Content != "my name is Alex" {
		t.Error("Turns must not mutate its input")
	}
}
