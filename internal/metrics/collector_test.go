package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/retry"
	"github.com/engels74/tgraph-bot-go/internal/supervisor"
)

func gatherFamilies(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := NewRegistry(c)
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[*f.Name] = f
	}
	return out
}

func TestCollector_Describe_ListsEveryFamily(t *testing.T) {
	c := NewCollector("test", time.Now(), clock.New(time.UTC), nil, nil)

	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 14, count)
}

func TestCollector_Collect_WithoutDependencies_ReportsInfoAndUptime(t *testing.T) {
	started := time.Now().Add(-5 * time.Second)
	c := NewCollector("1.2.3", started, clock.New(time.UTC), nil, nil)

	families := gatherFamilies(t, c)

	require.Contains(t, families, "tgraphbot_info")
	assert.Equal(t, "1.2.3", families["tgraphbot_info"].Metric[0].Label[0].GetValue())
	assert.Equal(t, float64(1), families["tgraphbot_info"].Metric[0].Gauge.GetValue())

	require.Contains(t, families, "tgraphbot_uptime_seconds")
	assert.Greater(t, families["tgraphbot_uptime_seconds"].Metric[0].Gauge.GetValue(), float64(0))

	assert.NotContains(t, families, "tgraphbot_scheduler_running")
}

func TestCollector_Collect_SupervisorTaskMetrics(t *testing.T) {
	clk := clock.New(time.UTC)
	policy, err := retry.New(3, time.Millisecond, 5*time.Millisecond, 2.0, false, 5, 1, time.Second)
	require.NoError(t, err)

	sup := supervisor.New(clk, log.Nop(), policy)
	sup.Start()
	t.Cleanup(sup.Stop)

	done := make(chan struct{})
	sup.Add("probe", func(ctx context.Context) error {
		close(done)
		<-ctx.Done()
		return nil
	}, true)
	<-done

	c := NewCollector("test", time.Now(), clk, nil, sup)
	families := gatherFamilies(t, c)

	require.Contains(t, families, "tgraphbot_supervisor_task_status")
	found := false
	for _, m := range families["tgraphbot_supervisor_task_status"].Metric {
		for _, l := range m.Label {
			if l.GetName() == "task" && l.GetValue() == "probe" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a task_status series labelled probe")

	require.Contains(t, families, "tgraphbot_breaker_state")
}
