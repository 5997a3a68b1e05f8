package timing

import (
	"reflect"

	"github.com/zowe/perf-timing"
)

// Timerify returns a function of the same type as fn that records a function
// entry named name for every call.
//
// The entry is recorded when the call returns, including when it panics; the
// panic is not recovered. The returned value can be type-asserted back to
// fn's type.
func (t *Timeline) Timerify(fn any, name string) (any, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, &perftiming.Error{
			Op:      `timing.Timerify`,
			Kind:    perftiming.ErrInvalid,
			Message: "not a function: " + describe(fn),
		}
	}
	typ := v.Type()
	call := v.Call
	if typ.IsVariadic() {
		call = v.CallSlice
	}
	w := reflect.MakeFunc(typ, func(args []reflect.Value) []reflect.Value {
		start := t.Now()
		defer func() {
			t.record(Entry{
				Name:      name,
				Type:      EntryFunction,
				StartTime: start,
				Duration:  t.Now() - start,
			})
		}()
		return call(args)
	})
	return w.Interface(), nil
}

func describe(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
