// Copyright (C) 2020-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor.patch semantic version, the value a bundle
// manifest's min_runtime_version string parses into.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse decodes a "major.minor.patch" string, tolerating an optional
// leading "v".
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(s, "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("version: %q is not major.minor.patch", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("version: %q is not major.minor.patch: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String returns the "major.minor.patch" representation.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Before returns true if v is before the provided version.
func (v Version) Before(other Version) bool {
	return v.Compare(other) < 0
}

// Compare returns:
// -1 if v < other
// 0 if v == other
// 1 if v > other
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// Compatible returns true if the versions are compatible (same major).
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}
