package modbus

import (
	"context"
	"log"
)

// TracingInterceptor creates an interceptor that extracts and logs trace
// IDs from context. The trace ID is extracted from the context using the
// provided key.
//
// Example:
//
//	client := modbus.NewClient(transport, modbus.WithInterceptor(modbus.TracingInterceptor(traceKey)))
//
//	ctx := context.WithValue(context.Background(), traceKey, "trace-12345")
//	client.ReadWriteRegisters(ctx, 0, 4, 2, values)
//	// Output: [TRACE:trace-12345] ReadWriteRegisters - Read:0+4 Write:2+2
func TracingInterceptor(traceIDKey interface{}) Interceptor {
	return TracingInterceptorWithLogger(traceIDKey, nil)
}

// TracingInterceptorWithLogger creates a tracing interceptor with a custom
// logger.
func TracingInterceptorWithLogger(traceIDKey interface{}, logger *log.Logger) Interceptor {
	if logger == nil {
		logger = log.Default()
	}

	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		traceID := ctx.Value(traceIDKey)
		if traceID != nil {
			logger.Printf("[TRACE:%v] %s - Read:%d+%d Write:%d+%d",
				traceID, info.Operation, info.ReadStart, info.ReadCount, info.WriteStart, info.WriteCount)
		}

		return invoke(ctx)
	}
}
