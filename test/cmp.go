package test

import (
	stdcmp "cmp"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// CmpOptions is a bundle of [cmp.Option] for perf-timing types.
//
// Averages of empty metrics are NaN, so NaNs compare equal; nil and empty
// slices and maps are equivalent, since JSON round trips don't preserve the
// difference.
var CmpOptions = cmp.Options{
	cmpopts.EquateNaNs(),
	cmpopts.EquateEmpty(),
	cmpopts.SortMaps(stdcmp.Less[string]),
}

// IgnoreTimes ignores the clock-dependent StartTime and Duration fields of
// any struct.
var IgnoreTimes = cmp.FilterPath(func(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	if !ok {
		return false
	}
	switch sf.Name() {
	case "StartTime", "Duration":
		return true
	}
	return false
}, cmp.Ignore())
