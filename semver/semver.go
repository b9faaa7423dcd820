package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Triple is a plain (major, minor, patch) version number. Thunderstore
// versions carry no pre-release or build metadata, so comparison is
// field-by-field lexicographic.
type Triple struct {
	Major int
	Minor int
	Patch int
}

// Parse converts a "1.2.3" string into a Triple.
func Parse(s string) (Triple, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Triple{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Triple{}, fmt.Errorf("invalid version %q: bad component %q", s, part)
		}
		nums[i] = n
	}

	return Triple{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) Triple {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Triple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

// Compare returns -1, 0 or 1 comparing t against other, major field first.
func (t Triple) Compare(other Triple) int {
	if t.Major != other.Major {
		return cmp(t.Major, other.Major)
	}
	if t.Minor != other.Minor {
		return cmp(t.Minor, other.Minor)
	}
	return cmp(t.Patch, other.Patch)
}

// AtLeast reports whether t satisfies a minimum-version floor.
func (t Triple) AtLeast(floor Triple) bool {
	return t.Compare(floor) >= 0
}

func (t Triple) Less(other Triple) bool {
	return t.Compare(other) < 0
}

func cmp(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
