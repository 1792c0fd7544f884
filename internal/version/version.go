// Package version parses and compares Home Assistant calendar versions
// of the form "YYYY.M" or "YYYY.M.patch".
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparseable indicates a version string that does not follow the
// "YYYY.M[.patch]" scheme. Callers must check for it explicitly and never
// proceed with a zero Version.
var ErrUnparseable = errors.New("unparseable version")

// Version is an ordered (year, month, patch) triple.
type Version struct {
	Year  int
	Month int
	Patch int
}

// Parse converts a version string into a Version. A single leading "v" is
// stripped. At least two dot-separated non-negative numeric segments are
// required; the patch segment defaults to 0 when absent.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(s, "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}

	nums := make([]int, 0, 3)
	for i, part := range parts {
		if i > 2 {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
		}
		nums = append(nums, n)
	}

	v := Version{Year: nums[0], Month: nums[1]}
	if len(nums) > 2 {
		v.Patch = nums[2]
	}
	return v, nil
}

// Compare returns -1, 0 or 1 ordering v against other lexicographically
// over (year, month, patch).
func (v Version) Compare(other Version) int {
	if v.Year != other.Year {
		return sign(v.Year - other.Year)
	}
	if v.Month != other.Month {
		return sign(v.Month - other.Month)
	}
	return sign(v.Patch - other.Patch)
}

// Before reports whether v is strictly older than other.
func (v Version) Before(other Version) bool { return v.Compare(other) < 0 }

// After reports whether v is strictly newer than other.
func (v Version) After(other Version) bool { return v.Compare(other) > 0 }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Year, v.Month, v.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
