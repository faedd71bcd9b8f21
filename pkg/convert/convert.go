// Package convert turns command line lists into the sets used to match responses.
package convert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// IntSetToSlice returns the members of m in ascending order
func IntSetToSlice(m map[int]struct{}) []int {
	ret := make([]int, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Ints(ret)
	return ret
}

// IntSliceToSet returns a set holding every value of v
func IntSliceToSet(v []int) map[int]struct{} {
	ret := make(map[int]struct{}, len(v))
	for _, vv := range v {
		ret[vv] = struct{}{}
	}
	return ret
}

// ParseIntRanges parses entries like "200", "300-399" or "200,204" into a set.
// Every malformed entry is reported
func ParseIntRanges(in []string) (map[int]struct{}, error) {
	var (
		ret  = make(map[int]struct{})
		merr *multierror.Error
	)
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lo, hi, err := parseRange(part)
			if err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			for i := lo; i <= hi; i++ {
				ret[i] = struct{}{}
			}
		}
	}
	return ret, merr.ErrorOrNil()
}

func parseRange(v string) (lo, hi int, err error) {
	bounds := strings.SplitN(v, "-", 2)
	if lo, err = strconv.Atoi(bounds[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", v)
	}
	hi = lo
	if len(bounds) == 2 {
		if hi, err = strconv.Atoi(bounds[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid range %q", v)
		}
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("range %q is reversed", v)
	}
	return lo, hi, nil
}

// UniqueStrings will remove duplicates preserving order of the input
func UniqueStrings(in []string) (out []string) {
	seen := make(map[string]struct{})
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return
}
