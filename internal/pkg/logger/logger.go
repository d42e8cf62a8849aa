// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init 初始化全局 Logger，所有日志都会携带 service 字段。
// 各服务的 main 函数应在启动时调用一次。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回与上下文绑定的 Logger。
// 如果上下文中携带了有效的 Trace 信息，则自动附加 trace_id 字段，
// 便于在日志系统中与 Jaeger 链路做关联检索。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		// 上下文中没有绑定 Logger 时回退到全局 Logger
		l = &zlog.Logger
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traced := l.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &traced
	}
	return l
}
