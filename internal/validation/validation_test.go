package validation

import "testing"

func TestIsValidOrderNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"valid base length", "A1B2C3D4", true},
		{"valid extended length", "A1B2C3D4E5F6", true},
		{"empty", "", false},
		{"too short", "A1B2C3D", false},
		{"length between base and extended", "A1B2C3D4E", false},
		{"lowercase letters", "a1b2c3d4", false},
		{"non-alphanumeric", "A1B2C3D!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidOrderNumber(tt.number); got != tt.want {
				t.Errorf("IsValidOrderNumber(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestNormalizeVoucherCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sale10", "SALE10"},
		{"  Sale10  ", "SALE10"},
		{"SALE10", "SALE10"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeVoucherCode(tt.in); got != tt.want {
			t.Errorf("NormalizeVoucherCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
