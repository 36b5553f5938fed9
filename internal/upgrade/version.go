package upgrade

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionPattern extracts a semantic version triple from an image reference,
// e.g. "registry/controller:v1.9.5".
var versionPattern = regexp.MustCompile(`v(\d+)\.(\d+)\.(\d+)`)

// Version is a semantic version extracted from an image reference. Known is
// false when the reference contains no v<major>.<minor>.<patch> substring.
type Version struct {
	Major int
	Minor int
	Patch int
	Known bool
}

func (v Version) String() string {
	if !v.Known {
		return "unknown"
	}
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion extracts the first semantic version from an image reference.
// Absence of a match is not an error: the result is simply unknown.
func ParseVersion(image string) Version {
	m := versionPattern.FindStringSubmatch(image)
	if m == nil {
		return Version{}
	}

	// The pattern guarantees digit-only groups.
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	return Version{Major: major, Minor: minor, Patch: patch, Known: true}
}

// IsMajorDowngrade reports whether moving from current to target crosses a
// major version backwards. Minor and patch regressions are informational
// only, and no comparison is possible when either version is unknown.
func IsMajorDowngrade(current, target Version) bool {
	if !current.Known || !target.Known {
		return false
	}
	return target.Major < current.Major
}
