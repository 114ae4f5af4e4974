package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ubnt-intrepid/msgpack-rpc-go/rpc"
)

// demoMethod documents one registered method for both dispatch and the
// "methods" introspection subcommand.
type demoMethod struct {
	name string
	doc  string
	fn   rpc.RequestFunc
}

// demoMethods is the illustrative handler set served by the serve and
// stdio subcommands and listed by the methods subcommand — the Go analogue
// of the original's examples/simple handler.
var demoMethods = []demoMethod{
	{
		name: "the_answer",
		doc:  "Returns the integer 42, no matter the params.",
		fn: func(context.Context, *rpc.Client, string, []interface{}) (interface{}, error) {
			return int64(42), nil
		},
	},
	{
		name: "echo",
		doc:  "Returns its first parameter unchanged.",
		fn: func(_ context.Context, _ *rpc.Client, _ string, params []interface{}) (interface{}, error) {
			if len(params) == 0 {
				return nil, nil
			}
			return params[0], nil
		},
	},
	{
		name: "delay",
		doc:  "Sleeps for the given number of milliseconds (first param, default 1000) then returns \"done\".",
		fn: func(ctx context.Context, _ *rpc.Client, _ string, params []interface{}) (interface{}, error) {
			millis := int64(1000)
			if len(params) > 0 {
				if v, ok := toInt64(params[0]); ok {
					millis = v
				}
			}
			select {
			case <-time.After(time.Duration(millis) * time.Millisecond):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	},
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func newDemoHandler() *rpc.MethodMux {
	mux := rpc.NewMethodMux()
	for _, m := range demoMethods {
		mux.Handle(m.name, rpc.FuncHandler(m.fn, nil))
	}
	return mux
}

func demoMarkdown() string {
	out := "# Registered methods\n\n"
	for _, m := range demoMethods {
		out += fmt.Sprintf("## %s\n\n%s\n\n", m.name, m.doc)
	}
	return out
}
