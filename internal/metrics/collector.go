// Package metrics exposes the bot's operational state as Prometheus
// metrics: a single prometheus.Collector that pulls live values from the
// Scheduler and TaskSupervisor on every scrape rather than maintaining its
// own counters in parallel with theirs. It is constructed once at startup,
// describes a fixed set of metric families, and collects fresh values by
// querying its dependencies synchronously inside Collect.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/scheduler"
	"github.com/engels74/tgraph-bot-go/internal/supervisor"
)

const namespace = "tgraphbot"

var (
	infoDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "info"),
		"Build information, constant 1, labelled by version.",
		[]string{"version"}, nil,
	)
	uptimeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "uptime_seconds"),
		"Seconds since the process started.",
		nil, nil,
	)
	schedulerRunningDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "running"),
		"1 if the update scheduler has completed startup and is active, 0 otherwise.",
		nil, nil,
	)
	nextUpdateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "next_update_timestamp_seconds"),
		"Unix timestamp of the next scheduled update, absent if not yet known.",
		nil, nil,
	)
	consecutiveFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "scheduler", "consecutive_failures"),
		"Consecutive trigger_update failures recorded in persisted schedule state.",
		nil, nil,
	)
	triggerAttemptsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "trigger_update", "attempts_total"),
		"Total trigger_update invocations, across every retry attempt group.",
		nil, nil,
	)
	triggerSuccessesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "trigger_update", "successes_total"),
		"Total trigger_update invocations that completed without error.",
		nil, nil,
	)
	triggerFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "trigger_update", "failures_total"),
		"Total trigger_update invocations that exhausted retries or hit a permanent error.",
		nil, nil,
	)
	triggerFailuresByClassDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "trigger_update", "failures_by_class_total"),
		"trigger_update failures broken down by errclass.Class.",
		[]string{"class"}, nil,
	)
	breakerStateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "breaker", "state"),
		"Circuit breaker state per key: 0=closed, 1=open, 2=half_open.",
		[]string{"breaker"}, nil,
	)
	taskStatusDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "supervisor", "task_status"),
		"Supervised task lifecycle state per task: 0=idle, 1=running, 2=failed, 3=cancelled.",
		[]string{"task"}, nil,
	)
	taskAttemptsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "supervisor", "task_attempts_total"),
		"Total run attempts per supervised task, including the first run.",
		[]string{"task"}, nil,
	)
	taskSuccessesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "supervisor", "task_successes_total"),
		"Total successful bodies per supervised task.",
		[]string{"task"}, nil,
	)
	taskFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "supervisor", "task_failures_total"),
		"Total failed bodies per supervised task.",
		[]string{"task"}, nil,
	)
)

// Collector adapts the Scheduler and TaskSupervisor's in-memory state to
// Prometheus' pull model. It holds no counters of its own: every value is
// read fresh from its dependencies on each Collect call, so a scrape can
// never observe a metric that drifts from what the scheduler, the supervisor
// or a chat command would report at the same instant.
type Collector struct {
	version   string
	startedAt time.Time
	clock     clock.Clock
	scheduler *scheduler.Scheduler
	sup       *supervisor.Supervisor
}

// NewCollector wires a Collector. version is reported on the info metric;
// startedAt anchors uptime_seconds.
func NewCollector(version string, startedAt time.Time, clk clock.Clock, sched *scheduler.Scheduler, sup *supervisor.Supervisor) *Collector {
	return &Collector{
		version:   version,
		startedAt: startedAt,
		clock:     clk,
		scheduler: sched,
		sup:       sup,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- infoDesc
	ch <- uptimeDesc
	ch <- schedulerRunningDesc
	ch <- nextUpdateDesc
	ch <- consecutiveFailuresDesc
	ch <- triggerAttemptsDesc
	ch <- triggerSuccessesDesc
	ch <- triggerFailuresDesc
	ch <- triggerFailuresByClassDesc
	ch <- breakerStateDesc
	ch <- taskStatusDesc
	ch <- taskAttemptsDesc
	ch <- taskSuccessesDesc
	ch <- taskFailuresDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(infoDesc, prometheus.GaugeValue, 1, c.version)
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, c.clock.Now().Sub(c.startedAt).Seconds())

	c.collectScheduler(ch)
	c.collectSupervisor(ch)
}

func (c *Collector) collectScheduler(ch chan<- prometheus.Metric) {
	if c.scheduler == nil {
		return
	}

	st := c.scheduler.Status()
	running := 0.0
	if st.IsRunning {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(schedulerRunningDesc, prometheus.GaugeValue, running)
	if st.NextUpdate != nil {
		ch <- prometheus.MustNewConstMetric(nextUpdateDesc, prometheus.GaugeValue, float64(st.NextUpdate.Unix()))
	}
	ch <- prometheus.MustNewConstMetric(consecutiveFailuresDesc, prometheus.GaugeValue, float64(st.ConsecutiveFailures))

	m := c.scheduler.MetricsSnapshot()
	ch <- prometheus.MustNewConstMetric(triggerAttemptsDesc, prometheus.CounterValue, float64(m.TotalAttempts))
	ch <- prometheus.MustNewConstMetric(triggerSuccessesDesc, prometheus.CounterValue, float64(m.TotalSuccesses))
	ch <- prometheus.MustNewConstMetric(triggerFailuresDesc, prometheus.CounterValue, float64(m.TotalFailures))
	for class, count := range m.PerClass {
		ch <- prometheus.MustNewConstMetric(triggerFailuresByClassDesc, prometheus.CounterValue, float64(count), classLabel(class))
	}

	ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue, float64(c.scheduler.BreakerState()), "trigger_update")
}

func (c *Collector) collectSupervisor(ch chan<- prometheus.Metric) {
	if c.sup == nil {
		return
	}

	for _, name := range c.sup.TaskNames() {
		status, snapshot, ok := c.sup.Status(name)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(taskStatusDesc, prometheus.GaugeValue, float64(status), name)
		ch <- prometheus.MustNewConstMetric(taskAttemptsDesc, prometheus.CounterValue, float64(snapshot.TotalAttempts), name)
		ch <- prometheus.MustNewConstMetric(taskSuccessesDesc, prometheus.CounterValue, float64(snapshot.TotalSuccesses), name)
		ch <- prometheus.MustNewConstMetric(taskFailuresDesc, prometheus.CounterValue, float64(snapshot.TotalFailures), name)
		ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue, float64(c.sup.BreakerState(name)), name)
	}
}

func classLabel(c errclass.Class) string {
	return c.String()
}

// NewRegistry returns a registry carrying collector plus the standard Go
// runtime and process collectors alongside it.
func NewRegistry(collector *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}
