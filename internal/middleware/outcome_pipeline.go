package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, o models.Outcome) error
}

// OutcomePipeline sits between an outcome feed and the backend.
// It validates, throttles per symbol, and buffers when downstream is
// unavailable, flushing with backoff in the background.
type OutcomePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan models.Outcome
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
}

type PipelineOption func(*OutcomePipeline)

// WithMaxRPS sets the max outcomes per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *OutcomePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *OutcomePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewOutcomePipeline creates a new pipeline.
func NewOutcomePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *OutcomePipeline {
	p := &OutcomePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   50,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Outcome, p.bufSize)
	return p
}

// Start launches background flushing of buffered outcomes.
func (p *OutcomePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case o := <-p.bufCh:
				if err := p.proc.Process(ctx, o); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- o:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *OutcomePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an outcome, buffering on
// downstream errors.
func (p *OutcomePipeline) Process(ctx context.Context, o models.Outcome) error {
	start := time.Now()
	if err := validateOutcome(o); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(o.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, o); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- o:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateOutcome(o models.Outcome) error {
	if o.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if o.OpenedAt.IsZero() || o.ClosedAt.IsZero() {
		return fmt.Errorf("timestamps missing")
	}
	if o.ClosedAt.Before(o.OpenedAt) {
		return fmt.Errorf("closed before opened")
	}
	if o.EntryPrice < 0 || o.ExitPrice < 0 || o.Quantity < 0 {
		return fmt.Errorf("negative price/quantity")
	}
	return nil
}

func (p *OutcomePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if last.IsZero() {
		p.lastSeen[symbol] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
