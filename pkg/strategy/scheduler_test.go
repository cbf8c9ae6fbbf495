// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package strategy

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/source"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

type staticStore struct {
	connectors []*connector.Connector
}

func (s staticStore) ConnectorsForHost(context.Context, string) ([]*connector.Connector, error) {
	return s.connectors, nil
}

// script serves "script" sources from a table keyed by the source path, or
// by the qualified source key when the path is empty.
type script struct {
	mu     sync.Mutex
	tables map[string]string
	calls  map[string]int
}

func newScript() *script {
	return &script{tables: make(map[string]string), calls: make(map[string]int)}
}

func (s *script) set(key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[key] = text
}

func (s *script) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *script) Handle(_ context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	key := src.Path
	if key == "" {
		key = src.Key
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	return telemetry.TableFromText(s.tables[key], "\n", ";"), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func task(sourceKey, sourceType string, m *connector.Mapping) *connector.Task {
	return &connector.Task{
		Sources: connector.NewSourceSet(connector.Source{Key: sourceKey, Type: sourceType}),
		Mapping: m,
	}
}

func diskConnector(t *testing.T) *connector.Connector {
	t.Helper()
	disk := &connector.MonitorJob{
		Metrics: map[string]connector.MetricDefinition{
			"hw.errors": {Type: connector.MetricType{Kind: connector.Counter}},
			"hw.status": {Type: connector.MetricType{StateSet: []string{"ok", "degraded", "failed"}}},
		},
		Discovery: task("list", "script", &connector.Mapping{
			Source:     "${source::list}",
			Attributes: map[string]string{"id": "$1", "name": "disk-$1"},
		}),
		Collect: task("stats", "script", &connector.Mapping{
			Source:     "stats",
			Attributes: map[string]string{"id": "$1"},
			Metrics:    map[string]string{"hw.errors": "$2", "hw.status": "$3"},
		}),
	}
	conn, err := connector.New("array", connector.SourceSet{}, map[string]*connector.MonitorJob{"disk": disk})
	require.NoError(t, err)
	return conn
}

func newScheduler(cfg *config.HostConfiguration, sc *script, clk *clock, conns ...*connector.Connector) *Scheduler {
	reg := source.NewRegistry()
	reg.Register("script", sc)
	state := telemetry.NewState(cfg)
	opts := []Option{}
	if clk != nil {
		opts = append(opts, WithClock(clk.Now))
	}
	return New(state, staticStore{connectors: conns}, reg, reg, opts...)
}

func TestTwoCycles(t *testing.T) {
	sc := newScript()
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := &config.HostConfiguration{Hostname: "array-1", DiscoveryInterval: time.Second}
	s := newScheduler(cfg, sc, clk, diskConnector(t))
	ctx := context.Background()

	sc.set("monitors.disk.discovery.sources.list", "d1\nd2")
	sc.set("monitors.disk.collect.sources.stats", "d1;100;ok\nd2;7;failed\nd9;1;ok")
	firstCycle := clk.Now()
	res, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Discovery, 1)
	require.Len(t, res.Collect, 1)
	assert.Equal(t, StateDone, res.Collect[0].State)
	assert.NotEmpty(t, res.ID)

	state := s.State()
	d1, ok := state.FindMonitor("disk", MonitorRegistryID("array", "disk", "d1"))
	require.True(t, ok)
	name, _ := d1.Attribute("name")
	assert.Equal(t, "disk-d1", name)
	owner, _ := d1.Attribute(telemetry.AttrConnectorID)
	assert.Equal(t, "array", owner)

	errs, ok := d1.NumberMetric("hw.errors")
	require.True(t, ok)
	assert.Equal(t, 100.0, errs.Value)
	assert.Nil(t, errs.Rate)

	status, ok := d1.StateSetMetric("hw.status")
	require.True(t, ok)
	assert.Equal(t, "ok", status.Value)

	assert.Len(t, state.MonitorsByType("disk"), 2, "unmatched collect rows create nothing")

	clk.Advance(10 * time.Second)
	sc.set("monitors.disk.discovery.sources.list", "d1")
	sc.set("monitors.disk.collect.sources.stats", "d1;150;degraded")
	_, err = s.Run(ctx)
	require.NoError(t, err)

	errs, _ = d1.NumberMetric("hw.errors")
	assert.Equal(t, 150.0, errs.Value)
	require.NotNil(t, errs.Rate)
	assert.InDelta(t, 5.0, *errs.Rate, 1e-9)
	require.NotNil(t, errs.PreviousValue)
	assert.Equal(t, 100.0, *errs.PreviousValue)

	status, _ = d1.StateSetMetric("hw.status")
	assert.Equal(t, "degraded", status.Value)
	assert.Equal(t, "ok", status.PreviousValue)

	d2, ok := state.FindMonitor("disk", MonitorRegistryID("array", "disk", "d2"))
	require.True(t, ok, "missing monitors are kept")
	presence, _ := d2.NumberMetric(PresenceMetric)
	assert.Equal(t, 0.0, presence.Value)
	presence, _ = d1.NumberMetric(PresenceMetric)
	assert.Equal(t, 1.0, presence.Value)
	assert.Equal(t, firstCycle, d2.DiscoveryTime(), "a missing monitor keeps its last discovery time")
	assert.Equal(t, clk.Now(), d1.DiscoveryTime())

	host := state.EndpointHost()
	configured, ok := host.NumberMetric("hwt.host.configured")
	require.True(t, ok)
	assert.Equal(t, 1.0, configured.Value)
	_, ok = host.NumberMetric(JobDurationMetric("collect", "disk", "array"))
	assert.True(t, ok)

	cm, ok := state.FindMonitor(ConnectorMonitorType, ConnectorMonitorID("array"))
	require.True(t, ok)
	connStatus, _ := cm.StateSetMetric(ConnectorStatusMetric)
	assert.Equal(t, "ok", connStatus.Value)
}

func TestDiscoveryInterval(t *testing.T) {
	sc := newScript()
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := &config.HostConfiguration{Hostname: "h", DiscoveryInterval: time.Hour}
	s := newScheduler(cfg, sc, clk, diskConnector(t))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Discovery)

	clk.Advance(time.Minute)
	res, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Discovery)
	assert.NotEmpty(t, res.Collect)
}

func TestEmptyAfterRowsIsRetried(t *testing.T) {
	sc := newScript()
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := newScheduler(&config.HostConfiguration{Hostname: "h"}, sc, clk, diskConnector(t))
	key := "monitors.disk.discovery.sources.list"

	sc.set(key, "d1")
	_, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sc.count(key))

	sc.set(key, "")
	clk.Advance(time.Minute)
	_, err = s.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sc.count(key), "one retry after an empty result")

	table, ok := s.State().Namespace("array").SourceTable(key)
	require.True(t, ok)
	assert.True(t, table.IsEmpty())
}

func TestCriteriaFailureSkipsConnector(t *testing.T) {
	conn := diskConnector(t)
	conn.Detection = &connector.Detection{Criteria: []connector.Criterion{{
		Source:         connector.Source{Type: "static", Value: "vendor;Other"},
		ExpectedResult: "ACME",
	}}}
	sc := newScript()
	sc.set("monitors.disk.discovery.sources.list", "d1")
	s := newScheduler(&config.HostConfiguration{Hostname: "h"}, sc, nil, conn)

	runs, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StateSkipped, runs[0].State)
	assert.Empty(t, s.State().MonitorsByType("disk"))

	cm, ok := s.State().FindMonitor(ConnectorMonitorType, ConnectorMonitorID("array"))
	require.True(t, ok)
	st, _ := cm.StateSetMetric(ConnectorStatusMetric)
	assert.Equal(t, "failed", st.Value)
	info, _ := cm.LegacyTextParameter(StatusInformation)
	assert.Contains(t, info, "does not match")

	ok, known := s.State().Namespace("array").StatusOK()
	assert.True(t, known)
	assert.False(t, ok)
}

func TestMonoInstanceCollect(t *testing.T) {
	disk := &connector.MonitorJob{
		Discovery: task("list", "script", &connector.Mapping{
			Source:     "list",
			Attributes: map[string]string{"id": "$1"},
		}),
		Collect: &connector.Task{
			Type: connector.MonoInstance,
			Sources: connector.NewSourceSet(connector.Source{
				Key: "temp", Type: "script", Path: "/sensors/${attribute::id}",
			}),
			Mapping: &connector.Mapping{
				Source:  "temp",
				Metrics: map[string]string{"hw.temperature": "$1"},
			},
		},
	}
	conn, err := connector.New("sensors", connector.SourceSet{}, map[string]*connector.MonitorJob{"temperature": disk})
	require.NoError(t, err)

	sc := newScript()
	sc.set("monitors.temperature.discovery.sources.list", "t1\nt2")
	sc.set("/sensors/t1", "41\n99")
	sc.set("/sensors/t2", "38")
	s := newScheduler(&config.HostConfiguration{Hostname: "h"}, sc, nil, conn)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	for id, want := range map[string]float64{"t1": 41, "t2": 38} {
		m, ok := s.State().FindMonitor("temperature", MonitorRegistryID("sensors", "temperature", id))
		require.True(t, ok)
		temp, ok := m.NumberMetric("hw.temperature")
		require.True(t, ok, id)
		assert.Equal(t, want, temp.Value, id)
	}
}

// recorder serves "record" sources and logs when each monitor type starts
// and ends.
type recorder struct {
	mu     sync.Mutex
	events []string
	delay  map[string]time.Duration
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Handle(ctx context.Context, src connector.Source, _ string, _ *telemetry.State) (telemetry.Table, error) {
	monitorType := strings.Split(src.Key, ".")[1]
	r.add("start:" + monitorType)
	d := r.delay[monitorType]
	if d == 0 {
		d = 5 * time.Millisecond
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	r.add("end:" + monitorType)
	return telemetry.Table{Rows: [][]string{{monitorType + "-1"}}}, nil
}

func (r *recorder) index(e string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Index(r.events, e)
}

func recordConnector(t *testing.T, types ...string) *connector.Connector {
	t.Helper()
	jobs := make(map[string]*connector.MonitorJob, len(types))
	for _, typ := range types {
		jobs[typ] = &connector.MonitorJob{Discovery: task("s", "record", &connector.Mapping{
			Source:     "s",
			Attributes: map[string]string{"id": "$1"},
		})}
	}
	conn, err := connector.New("hw", connector.SourceSet{}, jobs)
	require.NoError(t, err)
	return conn
}

func TestSchedulingOrder(t *testing.T) {
	types := []string{"fan", "cpu", "memory", "disk_controller", "enclosure", "gpu", "host"}

	for _, sequential := range []bool{true, false} {
		name := "parallel"
		if sequential {
			name = "sequential"
		}
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			reg := source.NewRegistry()
			reg.Register("record", rec)
			cfg := &config.HostConfiguration{Hostname: "h", Sequential: sequential, MaxJobWorkers: 4}
			s := New(telemetry.NewState(cfg), staticStore{connectors: []*connector.Connector{recordConnector(t, types...)}}, reg, reg)

			runs, err := s.Discover(context.Background())
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Len(t, runs[0].Jobs, len(types))

			priority := []string{"host", "enclosure", "disk_controller", "cpu"}
			for i := 1; i < len(priority); i++ {
				assert.Less(t, rec.index("end:"+priority[i-1]), rec.index("start:"+priority[i]),
					"%s must finish before %s starts", priority[i-1], priority[i])
			}
			for _, other := range []string{"fan", "gpu", "memory"} {
				assert.Less(t, rec.index("end:cpu"), rec.index("start:"+other))
			}
		})
	}
}

func TestPoolTimeout(t *testing.T) {
	rec := &recorder{delay: map[string]time.Duration{"fan": 2 * time.Second}}
	reg := source.NewRegistry()
	reg.Register("record", rec)
	cfg := &config.HostConfiguration{Hostname: "h", JobPoolTimeout: 50 * time.Millisecond}
	s := New(telemetry.NewState(cfg), staticStore{connectors: []*connector.Connector{recordConnector(t, "fan", "gpu")}}, reg, reg)

	start := time.Now()
	runs, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].PoolTimedOut)
	assert.Equal(t, StateDone, runs[0].State)
}

func TestPoolTimeoutStopsLateJob(t *testing.T) {
	release := make(chan struct{})
	var blocked atomic.Bool
	sc := newScript()
	reg := source.NewRegistry()
	reg.Register("script", sc)
	reg.Register("block", source.HandlerFunc(func(context.Context, connector.Source, string, *telemetry.State) (telemetry.Table, error) {
		<-release
		blocked.Store(true)
		return telemetry.TableFromText("x", "\n", ";"), nil
	}))

	fan := &connector.MonitorJob{Discovery: &connector.Task{Sources: connector.NewSourceSet(
		connector.Source{Key: "first", Type: "block"},
		connector.Source{Key: "second", Type: "script"},
	)}}
	conn, err := connector.New("slow", connector.SourceSet{}, map[string]*connector.MonitorJob{"fan": fan})
	require.NoError(t, err)

	cfg := &config.HostConfiguration{Hostname: "h", JobPoolTimeout: 20 * time.Millisecond}
	s := New(telemetry.NewState(cfg), staticStore{connectors: []*connector.Connector{conn}}, reg, reg)

	runs, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].PoolTimedOut)

	close(release)
	require.Eventually(t, blocked.Load, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return sc.count("monitors.fan.discovery.sources.second") > 0 },
		100*time.Millisecond, 5*time.Millisecond, "a job past the pool timeout runs no further source")
}

type panicking struct{}

func (panicking) ProcessSource(context.Context, connector.Source, string, *telemetry.State, map[string]string) telemetry.Table {
	panic("processor bug")
}

func (panicking) ProcessCriterion(context.Context, connector.Criterion, string, *telemetry.State) source.TestResult {
	return source.TestResult{Success: true}
}

func TestJobPanicIsContained(t *testing.T) {
	cfg := &config.HostConfiguration{Hostname: "h", Sequential: true}
	s := New(telemetry.NewState(cfg), staticStore{connectors: []*connector.Connector{recordConnector(t, "fan", "gpu")}},
		panicking{}, panicking{})

	runs, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Len(t, runs[0].Jobs, 2)
	for _, j := range runs[0].Jobs {
		assert.Contains(t, j.Error, "panicked")
	}
}

func TestSortConnectors(t *testing.T) {
	mk := func(id string, types ...string) *connector.Connector {
		jobs := make(map[string]*connector.MonitorJob)
		for _, typ := range types {
			jobs[typ] = &connector.MonitorJob{}
		}
		c, err := connector.New(id, connector.SourceSet{}, jobs)
		require.NoError(t, err)
		return c
	}
	cs := []*connector.Connector{
		mk("zeta", "disk"),
		mk("beta", "enclosure"),
		mk("alpha", "fan"),
		mk("omega", "host"),
		mk("gamma", "enclosure", "disk"),
	}
	SortConnectors(cs)

	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"omega", "beta", "gamma", "alpha", "zeta"}, ids)
}

func TestPartitionMonitorTypes(t *testing.T) {
	priority, others := PartitionMonitorTypes([]string{"fan", "cpu", "host", "gpu", "enclosure"})
	assert.Equal(t, []string{"host", "enclosure", "cpu"}, priority)
	assert.Equal(t, []string{"fan", "gpu"}, others)
}

func TestMonitorTypeFilter(t *testing.T) {
	rec := &recorder{}
	reg := source.NewRegistry()
	reg.Register("record", rec)
	cfg := &config.HostConfiguration{Hostname: "h", ExcludedMonitors: []string{"gpu"}}
	s := New(telemetry.NewState(cfg), staticStore{connectors: []*connector.Connector{recordConnector(t, "fan", "gpu")}}, reg, reg)

	_, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, rec.index("start:gpu"))
	assert.NotEqual(t, -1, rec.index("start:fan"))
}

func TestCycleResultTableRows(t *testing.T) {
	sc := newScript()
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cfg := &config.HostConfiguration{Hostname: "array-1"}
	s := newScheduler(cfg, sc, clk, diskConnector(t))

	sc.set("monitors.disk.discovery.sources.list", "d1")
	sc.set("monitors.disk.collect.sources.stats", "d1;1;ok")
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	rows := res.TableRows()
	require.Len(t, rows, 2)
	assert.Len(t, res.TableHeader(), len(rows[0]))
	assert.Equal(t, []string{"discovery", "array", string(StateDone), "1", "0", "false"}, rows[0])
	assert.Equal(t, "collect", rows[1][0])
}
