package handlers

import (
	"testing"
)

func TestMatchMailbox(t *testing.T) {

	tests := []struct {
		reference string
		pattern   string
		name      string
		match     bool
	}{
		{"", "*", "INBOX", true},
		{"", "%", "Archive", true},
		{"", "inbox", "INBOX", true},
		{"", "Arch*", "Archive", true},
		{"", "*ive", "Archive", true},
		{"", "A%e", "Archive", true},
		{"", "Sent", "Archive", false},
		{"", "Archive", "archive", false},
		{"", "Arch", "Archive", false},
		{"", "%", "Archive/2020", false},
		{"", "*", "Archive/2020", true},
		{"Archive", "%", "Archive/2020", true},
		{"Archive/", "20*", "Archive/2020", true},
		{"Sent", "*", "Archive/2020", false},
	}

	for _, test := range tests {

		if m := matchMailbox(test.name, '/', test.reference, test.pattern); m != test.match {
			t.Fatalf("[handlers.TestMatchMailbox] Expected matchMailbox(%q, %q, %q) to be %v but received %v",
				test.name, test.reference, test.pattern, test.match, m)
		}
	}
}
