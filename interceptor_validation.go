package modbus

import (
	"context"
	"fmt"
)

// ValidationInterceptor creates an interceptor that validates exchange
// parameters before they reach the wire. It rejects counts the protocol
// cannot express, so obviously malformed exchanges fail fast instead of
// earning an exception round trip.
//
// Example:
//
//	client := modbus.NewClient(transport, modbus.WithInterceptor(modbus.ValidationInterceptor()))
func ValidationInterceptor() Interceptor {
	return ValidationInterceptorWithLimits(125, MaxWritePayloadWords)
}

// ValidationInterceptorWithLimits creates a validation interceptor with
// custom limits. maxReadCount caps the registers read per exchange and
// maxWriteCount the registers written.
func ValidationInterceptorWithLimits(maxReadCount, maxWriteCount uint16) Interceptor {
	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		if info.Operation == OpReadWriteRegisters {
			if info.ReadCount == 0 && info.WriteCount == 0 {
				return nil, fmt.Errorf("empty exchange: nothing to read or write")
			}
			if info.ReadCount > maxReadCount {
				return nil, fmt.Errorf("read count too large: %d (max %d)", info.ReadCount, maxReadCount)
			}
			if info.WriteCount > maxWriteCount {
				return nil, fmt.Errorf("write count too large: %d (max %d)", info.WriteCount, maxWriteCount)
			}
			if int(info.ReadStart)+int(info.ReadCount) > 0x10000 {
				return nil, fmt.Errorf("read range [%d,%d) overflows the address space", info.ReadStart, int(info.ReadStart)+int(info.ReadCount))
			}
			if int(info.WriteStart)+int(info.WriteCount) > 0x10000 {
				return nil, fmt.Errorf("write range [%d,%d) overflows the address space", info.WriteStart, int(info.WriteStart)+int(info.WriteCount))
			}
		}

		return invoke(ctx)
	}
}

// AddressRangeValidator creates an interceptor that confines exchanges to
// an allowed register window.
//
// Example:
//
//	// Only allow registers 0-999
//	validator := modbus.AddressRangeValidator(0, 999)
//	client := modbus.NewClient(transport, modbus.WithInterceptor(validator))
func AddressRangeValidator(min, max uint16) Interceptor {
	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		if info.Operation == OpReadWriteRegisters {
			if info.ReadCount > 0 {
				if info.ReadStart < min || int(info.ReadStart)+int(info.ReadCount)-1 > int(max) {
					return nil, fmt.Errorf("read range [%d,%d] is outside allowed window [%d,%d]",
						info.ReadStart, int(info.ReadStart)+int(info.ReadCount)-1, min, max)
				}
			}
			if info.WriteCount > 0 {
				if info.WriteStart < min || int(info.WriteStart)+int(info.WriteCount)-1 > int(max) {
					return nil, fmt.Errorf("write range [%d,%d] is outside allowed window [%d,%d]",
						info.WriteStart, int(info.WriteStart)+int(info.WriteCount)-1, min, max)
				}
			}
		}

		return invoke(ctx)
	}
}

// ReadOnlyInterceptor creates an interceptor that blocks exchanges carrying
// a write payload.
//
// Example:
//
//	client := modbus.NewClient(transport, modbus.WithInterceptor(modbus.ReadOnlyInterceptor()))
func ReadOnlyInterceptor() Interceptor {
	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		if info.Operation == OpReadWriteRegisters && info.WriteCount > 0 {
			return nil, fmt.Errorf("write of %d registers is not allowed in read-only mode", info.WriteCount)
		}

		return invoke(ctx)
	}
}
