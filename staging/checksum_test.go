package staging

import "testing"

func TestChecksum(t *testing.T) {
	tests := map[string]struct {
		data     string
		expected uint8
	}{
		"empty": {"", 0x00},
		"check": {"123456789", 0xf4},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Checksum([]byte(tc.data)); got != tc.expected {
				t.Fatalf("expected %#02x, got %#02x", tc.expected, got)
			}
		})
	}
}
