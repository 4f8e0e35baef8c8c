package host

import (
	"context"
	"math"
	"time"

	"github.com/wippyai/wasm-gojs/value"
)

// Date is a point in time as seen by the guest.
type Date struct {
	value.Object
	t     time.Time
	valid bool
	proto *value.Object
}

// Time returns the instant the date represents and whether it is valid.
func (d *Date) Time() (time.Time, bool) {
	return d.t, d.valid
}

// Get looks up own properties before the shared Date methods.
func (d *Date) Get(key string) (value.Value, error) {
	if d.Has(key) {
		return d.Object.Get(key)
	}
	return d.proto.Get(key)
}

func (e *Env) now() time.Time {
	sec, nsec := e.clock.Walltime()
	return time.Unix(sec, int64(nsec)).In(e.location)
}

func (e *Env) newDateClass() *value.Function {
	proto := value.NewObject()
	method := func(name string, fn func(d *Date) value.Value) {
		_ = proto.Set(name, value.NewFunction(name, func(_ context.Context, this value.Value, _ []value.Value) (value.Value, error) {
			d, ok := this.(*Date)
			if !ok {
				return nil, value.TypeError("this is not a Date object.")
			}
			return fn(d), nil
		}))
	}

	epochMillis := func(d *Date) value.Value {
		if !d.valid {
			return value.Number(math.NaN())
		}
		return value.Number(float64(d.t.UnixMilli()))
	}
	method("getTime", epochMillis)
	method("valueOf", epochMillis)
	method("getTimezoneOffset", func(d *Date) value.Value {
		if !d.valid {
			return value.Number(math.NaN())
		}
		_, offset := d.t.Zone()
		return value.Number(float64(-offset / 60))
	})
	method("toISOString", func(d *Date) value.Value {
		if !d.valid {
			return value.String("Invalid Date")
		}
		return value.String(d.t.UTC().Format("2006-01-02T15:04:05.000Z"))
	})
	method("toString", func(d *Date) value.Value {
		if !d.valid {
			return value.String("Invalid Date")
		}
		return value.String(d.t.Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"))
	})
	method("toTimeString", func(d *Date) value.Value {
		if !d.valid {
			return value.String("Invalid Date")
		}
		return value.String(d.t.Format("15:04:05 GMT-0700 (MST)"))
	})

	ctor := value.NewClass("Date", e.objectCtor, func(_ context.Context, args []value.Value) (value.Value, error) {
		d := &Date{proto: proto, valid: true}
		switch {
		case len(args) == 0:
			d.t = e.now()
		default:
			d.t, d.valid = e.parseDate(args[0])
		}
		return d, nil
	}).WithCall(func(_ context.Context, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.String(e.now().Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")), nil
	})
	_ = ctor.Set("now", value.NewFunction("now", func(_ context.Context, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(e.now().UnixMilli())), nil
	}))
	return ctor
}

func (e *Env) parseDate(arg value.Value) (time.Time, bool) {
	switch x := arg.(type) {
	case value.Number:
		ms := float64(x)
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).In(e.location), true
	case value.String:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, string(x)); err == nil {
				return t.In(e.location), true
			}
		}
		return time.Time{}, false
	case *Date:
		return x.t, x.valid
	}
	return time.Time{}, false
}
