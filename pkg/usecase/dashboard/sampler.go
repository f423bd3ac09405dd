package dashboard

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
)

const (
	// WindowSize is the number of samples on the chart
	WindowSize = 20
	// DefaultInterval is the refresh period of the chart
	DefaultInterval = 2 * time.Second
)

// Servers returns the fixed mock inventory
func Servers() []model.ServerNode {
	return []model.ServerNode{
		{ID: "1", Name: "prod-api-01", Status: model.ServerStatusOnline, IP: "10.0.1.42", Region: "us-east-1"},
		{ID: "2", Name: "prod-db-01", Status: model.ServerStatusOnline, IP: "10.0.1.45", Region: "us-east-1"},
		{ID: "3", Name: "staging-worker", Status: model.ServerStatusWarning, IP: "10.0.2.12", Region: "us-west-2"},
		{ID: "4", Name: "dev-sandbox", Status: model.ServerStatusOffline, IP: "192.168.1.5", Region: "eu-central-1"},
	}
}

// Sampler produces random utilization samples over a sliding window
type Sampler struct {
	rng *rand.Rand
	now func() time.Time

	mu     sync.Mutex
	window []model.MetricSample
}

type Option func(*Sampler)

// WithRand sets the random source
func WithRand(rng *rand.Rand) Option {
	return func(s *Sampler) {
		s.rng = rng
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

// New creates a sampler with a full window of samples one minute apart
// ending now
func New(opts ...Option) *Sampler {
	s := &Sampler{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	s.window = make([]model.MetricSample, 0, WindowSize)
	for i := 0; i < WindowSize; i++ {
		s.window = append(s.window, model.MetricSample{
			Time:    now.Add(-time.Duration(WindowSize-i) * time.Minute),
			CPU:     20 + s.rng.IntN(40),
			Memory:  40 + s.rng.IntN(30),
			Network: 10 + s.rng.IntN(80),
		})
	}
	return s
}

// Window returns a copy of the current samples, oldest first
func (s *Sampler) Window() []model.MetricSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.MetricSample(nil), s.window...)
}

// Tick drops the oldest sample and appends a new one. CPU occasionally
// spikes by 30 points.
func (s *Sampler) Tick() model.MetricSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpu := 20 + s.rng.IntN(40)
	if s.rng.Float64() > 0.8 {
		cpu += 30
	}
	sample := model.MetricSample{
		Time:    s.now(),
		CPU:     cpu,
		Memory:  50 + s.rng.IntN(20),
		Network: 20 + s.rng.IntN(60),
	}

	s.window = append(s.window[1:], sample)
	return sample
}

// Run ticks every interval and passes the window to fn until ctx is done
func (s *Sampler) Run(ctx context.Context, interval time.Duration, fn func([]model.MetricSample)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
			fn(s.Window())
		}
	}
}
