package modbus

import "context"

// OperationType identifies the client operation being performed.
type OperationType string

const (
	OpReadWriteRegisters OperationType = "ReadWriteRegisters"
	OpExecute            OperationType = "Execute"
)

// InterceptorInfo describes the operation an interceptor wraps.
type InterceptorInfo struct {
	Operation  OperationType
	UnitID     byte
	ReadStart  uint16
	ReadCount  uint16
	WriteStart uint16
	WriteCount uint16
}

// Invoker executes the wrapped operation.
type Invoker func(ctx context.Context) (interface{}, error)

// Interceptor wraps client operations. It receives the context, the
// operation description and the invoker for the actual work, and may log,
// measure, modify the context, translate errors, or short-circuit.
//
// Example:
//
//	func timing(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
//	    start := time.Now()
//	    result, err := invoke(ctx)
//	    log.Printf("%s took %v", info.Operation, time.Since(start))
//	    return result, err
//	}
type Interceptor func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error)

// ChainInterceptors composes interceptors into one. The first interceptor
// wraps the second, the second wraps the third, and so on.
func ChainInterceptors(interceptors ...Interceptor) Interceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		return interceptors[0](ctx, info, func(ctx context.Context) (interface{}, error) {
			return ChainInterceptors(interceptors[1:]...)(ctx, info, invoke)
		})
	}
}
