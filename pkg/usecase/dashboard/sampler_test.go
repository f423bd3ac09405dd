package dashboard_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/dashboard"
)

func between(t *testing.T, name string, v, lo, hi int) {
	t.Helper()
	if v < lo || v > hi {
		t.Errorf("%s out of range: %d not in [%d, %d]", name, v, lo, hi)
	}
}

func TestInitialWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := dashboard.New(
		dashboard.WithRand(rand.New(rand.NewPCG(1, 2))),
		dashboard.WithClock(func() time.Time { return now }),
	)

	window := s.Window()
	gt.A(t, window).Length(dashboard.WindowSize)
	gt.Equal(t, window[0].Time, now.Add(-20*time.Minute))
	gt.Equal(t, window[19].Time, now.Add(-1*time.Minute))

	for _, m := range window {
		between(t, "cpu", m.CPU, 20, 59)
		between(t, "memory", m.Memory, 40, 69)
		between(t, "network", m.Network, 10, 89)
	}
}

func TestTick(t *testing.T) {
	s := dashboard.New(dashboard.WithRand(rand.New(rand.NewPCG(3, 4))))
	before := s.Window()

	for i := 0; i < 200; i++ {
		m := s.Tick()
		between(t, "cpu", m.CPU, 20, 89)
		between(t, "memory", m.Memory, 50, 69)
		between(t, "network", m.Network, 20, 79)
	}

	after := s.Window()
	gt.A(t, after).Length(dashboard.WindowSize)
	gt.NotEqual(t, after[0], before[0])
}

func TestTickSlidesWindow(t *testing.T) {
	s := dashboard.New()
	before := s.Window()
	latest := s.Tick()

	after := s.Window()
	gt.Equal(t, after[0], before[1])
	gt.Equal(t, after[dashboard.WindowSize-1], latest)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := dashboard.New()
	ctx, cancel := context.WithCancel(context.Background())

	ticks := 0
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond, func(window []model.MetricSample) {
			ticks++
			if ticks == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	gt.True(t, ticks >= 3)
}

func TestServers(t *testing.T) {
	servers := dashboard.Servers()
	gt.A(t, servers).Length(4)
	gt.Equal(t, servers[3].Status, model.ServerStatusOffline)
}
