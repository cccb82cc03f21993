package tui

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		input string
		name  string
		args  string
	}{
		{"add B7F2A9C1D4E6", "add", "B7F2A9C1D4E6"},
		{"  remove  b7f2a9c1d4e6 ", "remove", "b7f2a9c1d4e6"},
		{"image /tmp/cat.png", "image", "/tmp/cat.png"},
		{"QUIT", "quit", ""},
		{"h", "h", ""},
	}

	for _, tc := range cases {
		cmd := ParseCommand(tc.input)
		if cmd.Name != tc.name || cmd.Args != tc.args {
			t.Errorf("ParseCommand(%q) = %+v, want {%s %s}", tc.input, cmd, tc.name, tc.args)
		}
	}
}
