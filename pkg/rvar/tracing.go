package rvar

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceValue records a span for every value committed to v. A nil tracer
// uses the runtime tracer.
//
// Spans are named "rvar.value" and carry the variable name and id, the
// epoch, the modify importance, whether an animation made the change and
// the formatted value.
func TraceValue(v AnyVar, tracer trace.Tracer, name string) VarHandle {
	if v.Capabilities().IsAlwaysStatic() {
		return VarHandle{}
	}
	rt := v.Runtime()
	if tracer == nil {
		tracer = rt.tracer
	}
	id := v.ID()
	return v.Hook(func(args *HookArgs) bool {
		info := rt.CurrentModify()
		_, span := tracer.Start(context.Background(), "rvar.value",
			trace.WithAttributes(
				attribute.String("rvar.var.name", name),
				attribute.Int64("rvar.var.id", int64(id)),
				attribute.Int64("rvar.epoch", int64(rt.Epoch())),
				attribute.Int64("rvar.importance", int64(info.Importance())),
				attribute.Bool("rvar.animating", info.IsAnimating()),
				attribute.Int("rvar.tags", len(args.Tags())),
				attribute.String("rvar.value", args.Value().String()),
			))
		span.End()
		return true
	})
}
