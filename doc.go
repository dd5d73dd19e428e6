/*
Package modbus implements the Modbus read/write multiple registers
exchange (function 0x17): the wire codec, slave-side response synthesis
against a register store, and a master-side transaction loop with
per-attempt error classification.

# Features

  - Bit-exact big-endian codec for the combined read/write request and response
  - Read-before-write synthesis: the response snapshot is taken before the
    write is applied, so overlapping ranges report pre-write values
  - Modbus/TCP transport with MBAP framing, plus headless framing for
    transports that provide their own envelope
  - Typed error taxonomy separating slave, transport and protocol failures
  - Diagnostic Runner repeating an exchange N times and classifying outcomes
  - Interceptors for logging (zap), metrics, validation, tracing and
    opt-in retries around client operations
  - Link watchdog tracking up/down transitions from exchange outcomes
  - In-memory register store, in-process transport and TCP slave for
    integration testing

# Quick Start

	import (
		"context"
		"log"
		"time"

		modbus "github.com/sjar-hoo/gomodbus"
	)

	func main() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := modbus.DialTCPClient(ctx, "10.0.0.7:502",
			modbus.WithUnitID(1),
			modbus.WithTimeout(500*time.Millisecond),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		// Read 4 registers at 0 and write [7, 8] at 10, in one exchange.
		values, err := client.ReadWriteRegisters(ctx, 0, 4, 10, []uint16{7, 8})
		if err != nil {
			log.Printf("exchange failed: %v", err)
			return
		}
		log.Printf("read: %v", values)
	}

# Exercising a slave

The Runner repeats one exchange and reports each outcome without ever
aborting the loop, which suits diagnostic tools:

	transport, _ := modbus.DialTCP(ctx, "10.0.0.7:502")
	runner := modbus.NewRunner(transport, modbus.RunnerConfig{
		UnitID:     1,
		ReadStart:  0,
		ReadCount:  8,
		WriteStart: 8,
		Values:     []uint16{1, 2, 3},
		Iterations: 10,
	}, modbus.WithRunnerLogger(logger))
	stats, err := runner.Run(ctx)

A failed iteration is counted and reported, and the loop advances; there
is no automatic retry. The returned error covers transport teardown only.

# Serving a register store

	store := modbus.NewMemoryImage(1024)
	server, err := modbus.NewServer("127.0.0.1:5020", store)
	if err != nil {
		log.Fatal(err)
	}
	defer server.Close()

Requests whose read or write range falls outside the store come back as
illegal-data-address exception responses with the store left untouched.

# Error handling

Errors from an exchange are typed: SlaveError for exception responses,
*TransportError for timeouts and connection faults, ProtocolError for
malformed or mismatched responses, TruncatedMessageError for short
frames, and ErrNoResponse when an exchange resolves to nothing at all.
Classify maps any of them to an Outcome category for reporting.
*/
package modbus
