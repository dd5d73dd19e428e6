package modbus

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingInterceptor logs every client operation: start, completion,
// duration and any error.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client := modbus.NewClient(transport, modbus.WithInterceptor(modbus.LoggingInterceptor(logger)))
func LoggingInterceptor(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Named logger keeps a consistent component label.
	logger = logger.Named("modbus")

	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		start := time.Now()

		logger.Info("starting",
			zap.String("operation", string(info.Operation)),
			zap.Uint8("unit", info.UnitID),
			zap.Uint16("read_start", info.ReadStart),
			zap.Uint16("read_count", info.ReadCount),
			zap.Uint16("write_start", info.WriteStart),
			zap.Uint16("write_count", info.WriteCount),
		)

		result, err := invoke(ctx)

		duration := time.Since(start)
		if err != nil {
			logger.Error("failed",
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			logger.Info("completed",
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
			)
		}

		return result, err
	}
}
