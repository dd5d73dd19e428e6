package modbus

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunnerConfig describes the exchange a Runner repeats. The same fields
// feed every iteration in the common case, but each iteration builds its
// own fresh request, so per-iteration variation stays possible through
// the Build hook.
type RunnerConfig struct {
	UnitID     byte
	ReadStart  uint16
	ReadCount  uint16
	WriteStart uint16
	Values     []uint16

	// Iterations is the number of exchanges to run.
	Iterations int

	// Timeout bounds each receive; zero means DefaultReceiveTimeout.
	Timeout time.Duration

	// Signed reports register values reinterpreted as signed words.
	Signed bool

	// Headless frames exchanges without the transaction envelope.
	Headless bool

	// Build, when set, replaces the default request constructor and is
	// called once per iteration.
	Build func(iteration int) Request
}

// IterationResult is the reporting surface for one exchange: either a
// value list or a failure category with a description.
type IterationResult struct {
	Iteration int
	Outcome   Outcome

	// Values holds the reported register values on OutcomeOK, unsigned
	// or sign-extended per RunnerConfig.Signed.
	Values []int32

	// Err describes the failure for every outcome other than OutcomeOK.
	Err error
}

// RunStats counts iteration outcomes over one run.
type RunStats struct {
	OK               int
	SlaveErrors      int
	TransportErrors  int
	ProtocolErrors   int
	NoResponse       int
	UnknownResponses int
}

// Failures returns the number of iterations that did not produce a
// matching value-carrying response.
func (s RunStats) Failures() int {
	return s.SlaveErrors + s.TransportErrors + s.ProtocolErrors + s.NoResponse + s.UnknownResponses
}

func (s *RunStats) count(o Outcome) {
	switch o {
	case OutcomeOK:
		s.OK++
	case OutcomeSlaveError:
		s.SlaveErrors++
	case OutcomeTransportError:
		s.TransportErrors++
	case OutcomeProtocolError:
		s.ProtocolErrors++
	case OutcomeNoResponse:
		s.NoResponse++
	case OutcomeUnknownResponse:
		s.UnknownResponses++
	}
}

// Runner repeats one combined read/write exchange N times against a
// transport and classifies every outcome. No single-iteration failure
// aborts the run: failures are reported and the loop advances, which
// suits a diagnostic exerciser rather than a guaranteed-delivery client.
// There is deliberately no per-iteration retry.
//
// The Runner owns the transport for the duration of the run and releases
// it when the loop completes, normally or not.
type Runner struct {
	txn    *Transaction
	cfg    RunnerConfig
	logger *zap.Logger
	report func(IterationResult)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger attaches a logger; the default is a nop logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReporter replaces the default log-based reporting with a callback
// invoked once per iteration.
func WithReporter(report func(IterationResult)) RunnerOption {
	return func(r *Runner) {
		r.report = report
	}
}

// NewRunner builds a Runner over transport. The Runner takes ownership
// of the transport.
func NewRunner(transport Transport, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	topts := []TransactionOption{}
	if cfg.Timeout > 0 {
		topts = append(topts, WithReceiveTimeout(cfg.Timeout))
	}
	if cfg.Headless {
		topts = append(topts, WithHeadless())
	}
	r := &Runner{
		txn:    NewTransaction(transport, topts...),
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.report == nil {
		r.report = r.logResult
	}
	return r
}

// Run executes all configured iterations and returns the outcome counts.
// The transport is released before Run returns. The returned error covers
// teardown only; exchange failures are consumed, reported and counted.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats
	closed := false
	defer func() {
		if !closed {
			_ = r.txn.Close()
		}
	}()

	for i := 0; i < r.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			// Treat cancellation like a transport fault on the
			// remaining iterations rather than aborting silently.
			res := IterationResult{Iteration: i, Outcome: OutcomeTransportError, Err: &TransportError{Err: err}}
			stats.count(res.Outcome)
			r.report(res)
			continue
		}
		res := r.runOne(ctx, i)
		stats.count(res.Outcome)
		r.report(res)
	}

	closed = true
	if err := r.txn.Close(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Runner) runOne(ctx context.Context, iteration int) IterationResult {
	req := r.buildRequest(iteration)

	resp, err := r.txn.Execute(ctx, req)
	if err != nil {
		return IterationResult{Iteration: iteration, Outcome: Classify(err), Err: err}
	}
	if resp == nil {
		return IterationResult{Iteration: iteration, Outcome: OutcomeNoResponse, Err: ErrNoResponse}
	}

	switch resp := resp.(type) {
	case *ExceptionResponse:
		// A successful exchange carrying an application error,
		// distinct from a transport failure.
		return IterationResult{Iteration: iteration, Outcome: OutcomeSlaveError, Err: resp.Err()}
	case *ReadWriteMultipleResponse:
		values := make([]int32, resp.WordCount())
		for i := range values {
			if r.cfg.Signed {
				values[i] = int32(resp.SignedValue(i))
			} else {
				values[i] = int32(resp.Value(i))
			}
		}
		return IterationResult{Iteration: iteration, Outcome: OutcomeOK, Values: values}
	default:
		return IterationResult{
			Iteration: iteration,
			Outcome:   OutcomeUnknownResponse,
			Err:       protoErrf("unknown response with function code 0x%02X", resp.FunctionCode()),
		}
	}
}

// buildRequest constructs a fresh request for this iteration; requests
// are never reused across attempts.
func (r *Runner) buildRequest(iteration int) Request {
	if r.cfg.Build != nil {
		return r.cfg.Build(iteration)
	}
	return NewReadWriteMultipleRequest(r.cfg.UnitID, r.cfg.ReadStart, r.cfg.ReadCount, r.cfg.WriteStart, r.cfg.Values)
}

func (r *Runner) logResult(res IterationResult) {
	if res.Outcome == OutcomeOK {
		r.logger.Info("exchange completed",
			zap.Int("iteration", res.Iteration),
			zap.Int("words", len(res.Values)),
			zap.Int32s("values", res.Values),
		)
		return
	}
	r.logger.Warn("exchange failed",
		zap.Int("iteration", res.Iteration),
		zap.String("outcome", res.Outcome.String()),
		zap.Error(res.Err),
	)
}
