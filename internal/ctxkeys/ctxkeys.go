package ctxkeys

import "context"

// TraceIDKey 链路追踪标识的 context 键
type TraceIDKey struct{}

// WithTraceID 将追踪标识写入 context
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey{}, id)
}

// TraceID 读取追踪标识，缺失时为空串
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey{}).(string); ok {
		return v
	}
	return ""
}
