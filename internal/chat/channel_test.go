package chat

import "testing"

func TestChannelIDCommutative(t *testing.T) {
	pairs := [][2]string{
		{"AAA111", "BBB222"},
		{"BBB222", "AAA111"},
		{"ZZZZZZ", "AAAAAA"},
		{"1", "2"},
		{"SAME", "SAME"},
	}
	for _, p := range pairs {
		ab := ChannelID(p[0], p[1])
		ba := ChannelID(p[1], p[0])
		if ab != ba {
			t.Errorf("ChannelID(%q, %q) = %q but reversed = %q", p[0], p[1], ab, ba)
		}
	}
}

func TestChannelIDOrdering(t *testing.T) {
	got := ChannelID("BBB", "AAA")
	if got != "AAA_BBB" {
		t.Errorf("ChannelID(BBB, AAA) = %q, want AAA_BBB", got)
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "A1B2C3D4E5F6", false},
		{"valid short", "X", false},
		{"empty", "", true},
		{"lowercase", "abc123", true},
		{"separator", "AAA_BBB", true},
		{"space", "AAA BBB", true},
		{"too long", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	if got := NormalizeIdentity("  a1b2c3 "); got != "A1B2C3" {
		t.Errorf("NormalizeIdentity = %q, want A1B2C3", got)
	}
}
