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
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/errors"
	"github.com/NVIDIA/hwtelemetry/pkg/guard"
	"github.com/NVIDIA/hwtelemetry/pkg/source"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// PriorityMonitorTypes run first, in this order, on the calling goroutine.
// Other monitor types depend on the monitors they create.
var PriorityMonitorTypes = []string{"host", "enclosure", "blade", "disk_controller", "cpu"}

// ConnectorState is the lifecycle of a connector within one strategy pass.
type ConnectorState string

const (
	StateNotMatched           ConnectorState = "NotMatched"
	StateMatchedCriteriaValid ConnectorState = "MatchedCriteriaValid"
	StateCriteriaInvalid      ConnectorState = "CriteriaInvalid"
	StateScheduled            ConnectorState = "Scheduled"
	StateRunning              ConnectorState = "Running"
	StateDone                 ConnectorState = "Done"
	StateSkipped              ConnectorState = "Skipped"
)

// JobResult is the outcome of one monitor job.
type JobResult struct {
	MonitorType string        `json:"monitorType" yaml:"monitorType"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// ConnectorRun records what a strategy did with one connector.
type ConnectorRun struct {
	ConnectorID  string         `json:"connectorId" yaml:"connectorId"`
	Strategy     string         `json:"strategy" yaml:"strategy"`
	State        ConnectorState `json:"state" yaml:"state"`
	Jobs         []JobResult    `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	PoolTimedOut bool           `json:"poolTimedOut,omitempty" yaml:"poolTimedOut,omitempty"`
	StartedAt    time.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt" yaml:"finishedAt"`

	mu     sync.Mutex
	closed bool
}

// addJob records a job result. Jobs finishing after the pass was closed,
// such as jobs outliving a pool timeout, are not recorded.
func (r *ConnectorRun) addJob(j JobResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.Jobs = append(r.Jobs, j)
	return true
}

func (r *ConnectorRun) close(state ConnectorState, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = state
	r.FinishedAt = at
	r.closed = true
}

// CycleResult is the outcome of Scheduler.Run.
type CycleResult struct {
	ID        string          `json:"id" yaml:"id"`
	StartedAt time.Time       `json:"startedAt" yaml:"startedAt"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Discovery []*ConnectorRun `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	Collect   []*ConnectorRun `json:"collect,omitempty" yaml:"collect,omitempty"`
}

// Strategy is one pass over the connectors of a host. Discovery and
// collect share the connector and job skeleton and differ in what a job
// does with its tables.
type Strategy interface {
	// Name is the job name the strategy runs: discovery or collect.
	Name() string
	runJob(ctx context.Context, jc *jobContext) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler runs the discovery and collect cycles of one host.
type Scheduler struct {
	state     *telemetry.State
	store     connector.Store
	sources   source.Processor
	criteria  source.CriterionProcessor
	collector *telemetry.Collector
	gate      *guard.Gate
	now       func() time.Time

	mu            sync.Mutex
	connectors    []*connector.Connector
	lastDiscovery time.Time
}

// New returns a scheduler for the host of state.
func New(state *telemetry.State, store connector.Store, sources source.Processor,
	criteria source.CriterionProcessor, opts ...Option) *Scheduler {

	s := &Scheduler{
		state:     state,
		store:     store,
		sources:   sources,
		criteria:  criteria,
		collector: telemetry.NewCollector(state.Hostname()),
		gate:      guard.NewGate(state.Hostname(), state.Config().LockTimeout),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the registry the scheduler fills.
func (s *Scheduler) State() *telemetry.State {
	return s.state
}

// Run executes one cycle: discovery when it is due, then collect.
func (s *Scheduler) Run(ctx context.Context) (*CycleResult, error) {
	start := s.now()
	res := &CycleResult{ID: uuid.NewString(), StartedAt: start}
	log := slog.With("host", s.state.Hostname(), "cycle", res.ID)
	defer func() {
		res.Duration = s.now().Sub(start)
		cycleDuration.Observe(res.Duration.Seconds())
		monitorsGauge.Set(float64(s.state.MonitorCount()))
	}()

	connectors, err := s.loadConnectors(ctx)
	if err != nil {
		return res, err
	}

	s.state.EndpointHost()

	if s.discoveryDue(start) {
		res.Discovery = s.runStrategy(ctx, &DiscoveryStrategy{s: s}, connectors, start, res.ID)
		s.mu.Lock()
		s.lastDiscovery = start
		s.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Collect = s.runStrategy(ctx, &CollectStrategy{s: s}, connectors, s.now(), res.ID)
	s.collector.CollectNumber(s.state.EndpointHost(), "hwt.host.configured", nil, 1,
		connector.Gauge, s.now(), false)

	log.Info("cycle complete",
		"connectors", len(connectors),
		"monitors", s.state.MonitorCount(),
		"duration", s.now().Sub(start).String())
	return res, ctx.Err()
}

// Discover runs the discovery strategy alone.
func (s *Scheduler) Discover(ctx context.Context) ([]*ConnectorRun, error) {
	connectors, err := s.loadConnectors(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	runs := s.runStrategy(ctx, &DiscoveryStrategy{s: s}, connectors, now, uuid.NewString())
	s.mu.Lock()
	s.lastDiscovery = now
	s.mu.Unlock()
	return runs, ctx.Err()
}

// Collect runs the collect strategy alone.
func (s *Scheduler) Collect(ctx context.Context) ([]*ConnectorRun, error) {
	connectors, err := s.loadConnectors(ctx)
	if err != nil {
		return nil, err
	}
	return s.runStrategy(ctx, &CollectStrategy{s: s}, connectors, s.now(), uuid.NewString()), ctx.Err()
}

func (s *Scheduler) discoveryDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDiscovery.IsZero() {
		return true
	}
	interval := s.state.Config().DiscoveryInterval
	if interval <= 0 {
		interval = defaults.DiscoveryInterval
	}
	return now.Sub(s.lastDiscovery) >= interval
}

// loadConnectors reads the connectors of the host once and keeps them.
func (s *Scheduler) loadConnectors(ctx context.Context) ([]*connector.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectors != nil {
		return s.connectors, nil
	}
	cs, err := s.store.ConnectorsForHost(ctx, s.state.Config().HostID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to load connectors", err)
	}
	cs = slices.Clone(cs)
	SortConnectors(cs)
	s.connectors = cs
	return cs, nil
}

// SortConnectors orders connectors defining a host job first, then those
// defining an enclosure job, then the rest; ties break on id.
func SortConnectors(cs []*connector.Connector) {
	rank := func(c *connector.Connector) int {
		switch {
		case c.HasMonitorType(telemetry.EndpointMonitorType):
			return 0
		case c.HasMonitorType("enclosure"):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(cs, func(i, j int) bool {
		ri, rj := rank(cs[i]), rank(cs[j])
		if ri != rj {
			return ri < rj
		}
		return cs[i].ID < cs[j].ID
	})
}

// PartitionMonitorTypes splits types into priority types, in priority
// order, and the others sorted by name.
func PartitionMonitorTypes(types []string) (priority, others []string) {
	for _, p := range PriorityMonitorTypes {
		if slices.Contains(types, p) {
			priority = append(priority, p)
		}
	}
	for _, t := range types {
		if !slices.Contains(PriorityMonitorTypes, t) {
			others = append(others, t)
		}
	}
	sort.Strings(others)
	return priority, others
}

func (s *Scheduler) runStrategy(ctx context.Context, st Strategy, connectors []*connector.Connector,
	cycleTime time.Time, cycleID string) []*ConnectorRun {

	runs := make([]*ConnectorRun, 0, len(connectors))
	for _, conn := range connectors {
		if ctx.Err() != nil {
			break
		}
		run := s.runConnector(ctx, st, conn, cycleTime, cycleID)
		connectorRuns.WithLabelValues(st.Name(), string(run.State)).Inc()
		runs = append(runs, run)
	}
	return runs
}

func (s *Scheduler) runConnector(ctx context.Context, st Strategy, conn *connector.Connector,
	cycleTime time.Time, cycleID string) *ConnectorRun {

	run := &ConnectorRun{
		ConnectorID: conn.ID,
		Strategy:    st.Name(),
		State:       StateNotMatched,
		StartedAt:   s.now(),
	}
	log := slog.With("host", s.state.Hostname(), "connector", conn.ID, "strategy", st.Name(), "cycle", cycleID)

	if !s.validateConnector(ctx, conn, cycleTime) {
		log.Warn("connector detection criteria failed, skipping", "state", StateCriteriaInvalid)
		run.close(StateSkipped, s.now())
		return run
	}
	run.State = StateMatchedCriteriaValid

	if err := s.runPreSources(ctx, conn); err != nil {
		log.Error("connector pre sources failed", "error", err)
	}

	var types []string
	for _, t := range conn.MonitorTypes() {
		job := conn.Monitors[t]
		if job.Task(st.Name()) == nil {
			continue
		}
		if s.state.Config().IsMonitorTypeFiltered(t) {
			log.Debug("monitor type filtered out", "monitor_type", t)
			continue
		}
		types = append(types, t)
	}
	priority, others := PartitionMonitorTypes(types)
	run.State = StateScheduled
	log.Debug("monitor jobs scheduled", "priority", priority, "others", others)

	run.State = StateRunning
	for _, t := range priority {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, st, conn, t, cycleTime, run)
	}

	if len(others) > 0 && ctx.Err() == nil {
		if s.state.Config().IsSequential() {
			for _, t := range others {
				if ctx.Err() != nil {
					break
				}
				s.runJob(ctx, st, conn, t, cycleTime, run)
			}
		} else {
			s.runPool(ctx, st, conn, others, cycleTime, run, log)
		}
	}

	run.close(StateDone, s.now())
	log.Debug("connector pass finished", "jobs", len(run.Jobs), "pool_timed_out", run.PoolTimedOut)
	return run
}

// runPool runs jobs over a bounded errgroup. The wait is bounded by the job
// pool timeout. Jobs still running afterwards are not canceled; their
// interrupts are stopped, which ends any wait on a connector lock and makes
// the job give up before its next source.
func (s *Scheduler) runPool(ctx context.Context, st Strategy, conn *connector.Connector, types []string,
	cycleTime time.Time, run *ConnectorRun, log *slog.Logger) {

	cfg := s.state.Config()
	workers := cfg.MaxJobWorkers
	if workers <= 0 {
		workers = defaults.MaxJobWorkers
	}
	timeout := cfg.JobPoolTimeout
	if timeout <= 0 {
		timeout = defaults.JobPoolTimeout
	}

	var (
		intrMu     sync.Mutex
		interrupts []*guard.Interrupt
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(workers)
		for _, t := range types {
			intr := guard.NewInterrupt()
			intrMu.Lock()
			interrupts = append(interrupts, intr)
			intrMu.Unlock()
			g.Go(func() error {
				s.runJob(guard.WithInterrupt(ctx, intr), st, conn, t, cycleTime, run)
				return nil
			})
		}
		_ = g.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		run.PoolTimedOut = true
		poolTimeouts.WithLabelValues(st.Name()).Inc()
		log.Error("job pool timeout, continuing without waiting",
			"error", errors.NewWithContext(errors.ErrCodeConcurrencyTimeout, "job pool wait expired",
				map[string]any{"timeout": timeout.String(), "jobs": len(types)}))
		intrMu.Lock()
		for _, intr := range interrupts {
			intr.Stop()
		}
		intrMu.Unlock()
	case <-ctx.Done():
		log.Warn("job pool interrupted", "error", ctx.Err())
	}
}

// runJob runs one monitor job and contains any failure to it.
func (s *Scheduler) runJob(ctx context.Context, st Strategy, conn *connector.Connector, monitorType string,
	cycleTime time.Time, run *ConnectorRun) {

	if guard.InterruptFrom(ctx) == nil {
		ctx = guard.WithInterrupt(ctx, guard.NewInterrupt())
	}
	log := slog.With("host", s.state.Hostname(), "connector", conn.ID, "monitor_type", monitorType, "strategy", st.Name())
	jc := &jobContext{
		conn:        conn,
		monitorType: monitorType,
		job:         conn.Monitors[monitorType],
		task:        conn.Monitors[monitorType].Task(st.Name()),
		cycleTime:   cycleTime,
		log:         log,
	}

	start := time.Now()
	status := "ok"
	var jobErr error
	func() {
		defer func() {
			if p := recover(); p != nil {
				status = "panic"
				jobErr = fmt.Errorf("job panicked: %v", p)
			}
		}()
		if err := st.runJob(ctx, jc); err != nil {
			status = "error"
			jobErr = err
		}
	}()
	elapsed := time.Since(start)

	jobDuration.WithLabelValues(st.Name()).Observe(elapsed.Seconds())
	jobsTotal.WithLabelValues(st.Name(), status).Inc()

	result := JobResult{MonitorType: monitorType, Duration: elapsed}
	if jobErr != nil {
		result.Error = jobErr.Error()
		log.Error("monitor job failed", "error", jobErr)
	} else {
		log.Debug("monitor job done", "duration", elapsed.String())
	}
	if !run.addJob(result) {
		log.Warn("monitor job finished after its connector pass was closed", "duration", elapsed.String())
	}

	if s.state.Config().SelfMonitoring() {
		s.collector.CollectNumber(s.state.EndpointHost(), JobDurationMetric(st.Name(), monitorType, conn.ID),
			nil, elapsed.Seconds(), connector.Gauge, s.now(), false)
	}
}

// JobDurationMetric returns the name of the job duration metric recorded on
// the endpoint host.
func JobDurationMetric(strategy, monitorType, connectorID string) string {
	return fmt.Sprintf(`hwt.job.duration{job.type="%s", monitor.type="%s", connector_id="%s"}`,
		strategy, monitorType, connectorID)
}

// TableHeader names the columns of TableRows.
func (r *CycleResult) TableHeader() []string {
	return []string{"STRATEGY", "CONNECTOR", "STATE", "JOBS", "FAILED", "POOL TIMEOUT"}
}

// TableRows renders one row per connector run, discovery first.
func (r *CycleResult) TableRows() [][]string {
	var rows [][]string
	for _, run := range slices.Concat(r.Discovery, r.Collect) {
		run.mu.Lock()
		failed := 0
		for _, j := range run.Jobs {
			if j.Error != "" {
				failed++
			}
		}
		rows = append(rows, []string{
			run.Strategy,
			run.ConnectorID,
			string(run.State),
			fmt.Sprint(len(run.Jobs)),
			fmt.Sprint(failed),
			fmt.Sprint(run.PoolTimedOut),
		})
		run.mu.Unlock()
	}
	return rows
}
