package valueobjects

import (
	"fmt"
	"regexp"
	"strconv"
)

var semverPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)$`)

// SemVer is a prompt version of the form vMAJOR.MINOR.PATCH
type SemVer struct {
	Major int
	Minor int
	Patch int
}

// ParseSemVer parses a version string such as "v1.2.3"
func ParseSemVer(s string) (SemVer, error) {
	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return SemVer{}, fmt.Errorf("invalid version %q: must match vMAJOR.MINOR.PATCH", s)
	}

	parts := make([]int, 3)
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return SemVer{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		parts[i] = n
	}
	return SemVer{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

// String returns the canonical string form
func (v SemVer) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// NextPatch returns the version with only PATCH incremented
func (v SemVer) NextPatch() SemVer {
	return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// Compare returns -1, 0 or 1 using numeric ordering of each component
func (v SemVer) Compare(other SemVer) int {
	switch {
	case v.Major != other.Major:
		return cmpInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpInt(v.Minor, other.Minor)
	default:
		return cmpInt(v.Patch, other.Patch)
	}
}

// CompareVersionStrings orders two version strings semantically. Malformed
// strings sort before well-formed ones and fall back to lexical order
// among themselves.
func CompareVersionStrings(a, b string) int {
	va, errA := ParseSemVer(a)
	vb, errB := ParseSemVer(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA != nil && errB == nil:
		return -1
	case errA == nil && errB != nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
