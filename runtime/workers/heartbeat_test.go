package workers

import (
	"bytes"
	"context"
	"huddle/observability"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHeartbeatWorker_Beat_Logs_Counters(t *testing.T) {
	req := require.New(t)
	out := &lockedBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))

	// Given some activity recorded by the engine
	monitoring := observability.NewMonitoringManager().
		WithGauges(func() (int, int) { return 3, 2 })
	monitoring.IncrMessagesSent()
	monitoring.IncrDelivered()
	monitoring.IncrDelivered()

	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	// When a beat is emitted
	NewHeartbeatWorker(log, monitoring, time.Second).beat(p)

	// Then the counters are part of the log line
	line := out.String()
	req.Contains(line, "msg=Heartbeat")
	req.Contains(line, "connections=3")
	req.Contains(line, "groups=2")
	req.Contains(line, "messages_sent=1")
	req.Contains(line, "events_delivered=2")
}

func TestHeartbeatWorker_Run_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	out := &lockedBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))
	ctx, cancel := context.WithCancel(context.Background())

	worker := NewHeartbeatWorker(log, observability.NewMonitoringManager(), 10*time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool {
		return strings.Contains(out.String(), "msg=Heartbeat")
	}, time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-done)
}

func TestNewHeartbeatWorker_Default_Interval(t *testing.T) {
	worker := NewHeartbeatWorker(slog.Default(), nil, 0)
	require.Equal(t, defaultHeartbeatInterval, worker.interval)
}
