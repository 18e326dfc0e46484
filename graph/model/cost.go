package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentlib/workgraph/graph/emit"
)

// Pricing is the cost of a model in USD per million tokens.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultPricing covers the default models of the bundled adapters and
// their common siblings. Prices change; override with SetPricing.
var DefaultPricing = map[string]Pricing{
	"claude-sonnet-4-5": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-opus-4-1":   {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-5-haiku":  {InputPer1M: 0.80, OutputPer1M: 4.00},
	"gpt-4o":            {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":       {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gemini-1.5-pro":    {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":  {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// Call is one metered model call.
type Call struct {
	Model   string
	Usage   Usage
	CostUSD float64
	At      time.Time
}

// CostTracker accumulates token usage and cost across model calls. Models
// missing from the pricing table are recorded at zero cost. It is safe for
// concurrent use.
type CostTracker struct {
	mu      sync.RWMutex
	pricing map[string]Pricing
	calls   []Call
	byModel map[string]float64
	total   float64
	usage   Usage
}

// NewCostTracker creates a tracker priced with DefaultPricing.
func NewCostTracker() *CostTracker {
	pricing := make(map[string]Pricing, len(DefaultPricing))
	for k, v := range DefaultPricing {
		pricing[k] = v
	}
	return &CostTracker{pricing: pricing, byModel: make(map[string]float64)}
}

// SetPricing overrides the price of one model.
func (ct *CostTracker) SetPricing(model string, p Pricing) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.pricing[model] = p
}

// Record adds one call and returns its cost.
func (ct *CostTracker) Record(model string, u Usage) float64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	p := ct.pricing[model]
	cost := float64(u.InputTokens)/1_000_000*p.InputPer1M +
		float64(u.OutputTokens)/1_000_000*p.OutputPer1M

	ct.calls = append(ct.calls, Call{Model: model, Usage: u, CostUSD: cost, At: time.Now()})
	ct.byModel[model] += cost
	ct.total += cost
	ct.usage.InputTokens += u.InputTokens
	ct.usage.OutputTokens += u.OutputTokens
	return cost
}

// Total returns the accumulated cost in USD.
func (ct *CostTracker) Total() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.total
}

// ByModel returns the accumulated cost per model.
func (ct *CostTracker) ByModel() map[string]float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	out := make(map[string]float64, len(ct.byModel))
	for k, v := range ct.byModel {
		out[k] = v
	}
	return out
}

// Calls returns the recorded calls in order.
func (ct *CostTracker) Calls() []Call {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return append([]Call(nil), ct.calls...)
}

// Usage returns the accumulated token usage.
func (ct *CostTracker) Usage() Usage {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.usage
}

// Reset clears recorded calls, keeping the pricing.
func (ct *CostTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.calls = nil
	ct.byModel = make(map[string]float64)
	ct.total = 0
	ct.usage = Usage{}
}

func (ct *CostTracker) String() string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return fmt.Sprintf("%d call(s), %d in / %d out tokens, $%.4f",
		len(ct.calls), ct.usage.InputTokens, ct.usage.OutputTokens, ct.total)
}

// MeterOption configures Metered.
type MeterOption func(*meteredModel)

// WithEvents emits a model_call event to e after every successful call.
// The event is stamped with the run and node found in the call's context.
func WithEvents(e emit.Emitter) MeterOption {
	return func(m *meteredModel) { m.events = e }
}

// Metered wraps m so every successful call is recorded in tracker under
// the given model name.
func Metered(m ChatModel, name string, tracker *CostTracker, opts ...MeterOption) ChatModel {
	mm := &meteredModel{ChatModel: m, name: name, tracker: tracker}
	for _, opt := range opts {
		opt(mm)
	}
	return mm
}

type meteredModel struct {
	ChatModel
	name    string
	tracker *CostTracker
	events  emit.Emitter
}

func (m *meteredModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	out, err := m.ChatModel.Chat(ctx, messages)
	if err != nil {
		return out, err
	}
	cost := m.tracker.Record(m.name, out.Usage)
	if m.events != nil {
		origin, _ := emit.OriginFrom(ctx)
		m.events.Emit(origin.Event(emit.MsgModelCall, map[string]any{
			"model":      m.name,
			"tokens_in":  out.Usage.InputTokens,
			"tokens_out": out.Usage.OutputTokens,
			"cost_usd":   cost,
		}))
	}
	return out, nil
}
