package prompt

import (
	"strings"
	"testing"
)

func TestNormalizeVoice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Ara", "Ara"},
		{"Leo", "Leo"},
		{" Rex ", "Rex"},
		{"", "Ara"},
		{"HAL9000", "Ara"},
	}
	for _, tc := range cases {
		if got := NormalizeVoice(tc.in); got != tc.want {
			t.Errorf("NormalizeVoice(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestForCallIncludesScriptAndNames(t *testing.T) {
	t.Parallel()

	got := ForCall(CallInfo{
		Sender:    "Sam",
		Recipient: "Alex",
		Script:    "roses are red",
		Style:     "cowboy",
	})
	for _, want := range []string{"Sam", "Alex", "roses are red", "cowboy", "PG-13"} {
		if !strings.Contains(got, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}

func TestForCallExplicitSwitchesContentNote(t *testing.T) {
	t.Parallel()

	got := ForCall(CallInfo{Sender: "Sam", Recipient: "Alex", Script: "x", Explicit: true})
	if strings.Contains(got, "PG-13") {
		t.Error("explicit instructions should not carry the PG-13 note")
	}
}
