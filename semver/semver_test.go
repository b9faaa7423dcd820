package semver

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Triple
		wantErr bool
	}{
		{"1.2.3", Triple{1, 2, 3}, false},
		{"0.0.0", Triple{0, 0, 0}, false},
		{"10.20.30", Triple{10, 20, 30}, false},
		{"1.2", Triple{}, true},
		{"1.2.3.4", Triple{}, true},
		{"1.2.x", Triple{}, true},
		{"1.-2.3", Triple{}, true},
		{"", Triple{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.2.0", "1.1.9", 1},
		{"1.1.1", "1.1.2", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got := MustParse(tt.a).Compare(MustParse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	floor := MustParse("1.2.0")

	if !MustParse("1.3.0").AtLeast(floor) {
		t.Error("1.3.0 should satisfy floor 1.2.0")
	}
	if !MustParse("1.2.0").AtLeast(floor) {
		t.Error("1.2.0 should satisfy floor 1.2.0")
	}
	if MustParse("1.1.9").AtLeast(floor) {
		t.Error("1.1.9 should not satisfy floor 1.2.0")
	}
}

func TestString(t *testing.T) {
	if s := (Triple{1, 22, 333}).String(); s != "1.22.333" {
		t.Errorf("String() = %q, want %q", s, "1.22.333")
	}
}
