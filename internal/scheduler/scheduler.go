// Package scheduler implements the orchestrator (C9): the single entry
// point that owns the task registry, resource registry, and buffer list
// for one project, composes C1 through C8 into schedule(), and exposes
// the execution-time operations that keep a built schedule in sync with
// reported progress.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/ccpm/internal/buffer"
	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmerrors"
	"github.com/aristath/ccpm/internal/ccpmgraph"
	"github.com/aristath/ccpm/internal/criticalchain"
	"github.com/aristath/ccpm/internal/events"
	"github.com/aristath/ccpm/internal/execution"
	"github.com/aristath/ccpm/internal/feedingchain"
	"github.com/aristath/ccpm/internal/leveling"
	"github.com/aristath/ccpm/internal/resource"
	"github.com/aristath/ccpm/internal/task"
)

// TaskInput is the planning-phase description of one task, passed to
// AddTask before schedule() has run.
type TaskInput struct {
	ID                 string
	Name               string
	AggressiveDuration float64
	SafeDuration       float64
	Dependencies       []string
	Resources          []task.ResourceRequirement
}

// ResourceInput is the planning-phase description of one resource,
// passed to SetResources before schedule() has run.
type ResourceInput struct {
	Name                string
	Capacity            float64
	Calendar            *calendar.Calendar
	AllowOverallocation bool
}

// Snapshot is the immutable baseline schedule() returns: tasks with
// their committed dates, the critical and feeding chains, and the
// buffers that protect them.
type Snapshot struct {
	Tasks           map[string]*task.Task
	CriticalChain   *task.Chain
	FeedingChains   []*task.Chain
	Buffers         []*task.Buffer
	ProjectStart    time.Time
	ProjectEnd      time.Time
	CriticalChainID []string
}

// FeverPoint is one dated observation of a chain's completion and buffer
// consumption, as recorded by recalculate_network_from_progress.
type FeverPoint struct {
	Date           time.Time
	CompletionPct  float64
	ConsumptionPct float64
	Zone           execution.Zone
}

// Scheduler owns the task registry, resource registry, and buffer list
// for one project. It is single-threaded and non-reentrant per
// instance: the mutex below guards against accidental concurrent use,
// it is not a concurrency feature of the public API.
type Scheduler struct {
	mu sync.Mutex

	startDate      time.Time
	bufferStrategy buffer.Strategy
	projectCal     *calendar.Calendar
	bus            *events.EventBus

	taskSpecs     map[string]*task.Task // planning-phase tasks, keyed by id
	taskOrder     []string              // AddTask call order, for deterministic error reporting
	resourceSpecs []ResourceInput

	built         bool
	tasks         map[string]*task.Task
	order         []string // topological order, fixed at schedule() time
	deps          map[string][]string
	resources     *resource.Registry
	criticalChain []string
	chains        map[string]*task.Chain
	chainOrder    []string
	buffers       map[string]*task.Buffer
	bufferOrder   []string

	feverHistory map[string][]FeverPoint
}

// New constructs a Scheduler against a project start date and a named
// buffer strategy (per buffer.New).
func New(startDate time.Time, bufferStrategyName string) *Scheduler {
	return &Scheduler{
		startDate:      startDate,
		bufferStrategy: buffer.New(bufferStrategyName),
		projectCal:     calendar.New(),
		bus:            events.NewEventBus(),
		taskSpecs:      make(map[string]*task.Task),
		feverHistory:   make(map[string][]FeverPoint),
	}
}

// Events returns the event bus that schedule, task-progress, and buffer
// events are published on.
func (s *Scheduler) Events() *events.EventBus {
	return s.bus
}

// SetStartDate overrides the project start date set at construction.
// Fails with ScheduleAlreadyBuilt once schedule() has returned.
func (s *Scheduler) SetStartDate(d time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return &ccpmerrors.ScheduleAlreadyBuilt{}
	}
	s.startDate = d
	return nil
}

// SetProjectCalendar overrides the default Mon-Fri project calendar used
// for buffer placement and date arithmetic outside resource-specific
// allocation. Fails with ScheduleAlreadyBuilt once schedule() has
// returned.
func (s *Scheduler) SetProjectCalendar(cal *calendar.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return &ccpmerrors.ScheduleAlreadyBuilt{}
	}
	s.projectCal = cal
	return nil
}

// SetResources registers the project's resource pool. Fails with
// ScheduleAlreadyBuilt once schedule() has returned.
func (s *Scheduler) SetResources(inputs []ResourceInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return &ccpmerrors.ScheduleAlreadyBuilt{}
	}
	s.resourceSpecs = append(s.resourceSpecs, inputs...)
	return nil
}

// AddTask validates and stores a planning-phase task. Fails with
// ScheduleAlreadyBuilt once schedule() has returned, or with
// InvalidTask if the task's own fields (not yet its cross-references)
// are malformed.
func (s *Scheduler) AddTask(in TaskInput) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return nil, &ccpmerrors.ScheduleAlreadyBuilt{}
	}
	if _, exists := s.taskSpecs[in.ID]; exists {
		return nil, &ccpmerrors.InvalidTask{TaskID: in.ID, Reason: "task id already exists"}
	}

	t, err := task.New(in.ID, in.Name, in.AggressiveDuration, in.SafeDuration, in.Dependencies, in.Resources)
	if err != nil {
		return nil, err
	}

	s.taskSpecs[in.ID] = t
	s.taskOrder = append(s.taskOrder, in.ID)
	return t.Clone(), nil
}

// idNode adapts a task id and its dependency list to ccpmgraph.Node.
type idNode struct {
	id   string
	deps []string
}

func (n idNode) NodeID() string             { return n.id }
func (n idNode) NodeDependencies() []string { return n.deps }

func nodesFor(deps map[string][]string) []ccpmgraph.Node {
	nodes := make([]ccpmgraph.Node, 0, len(deps))
	for id, ds := range deps {
		nodes = append(nodes, idNode{id: id, deps: ds})
	}
	return nodes
}

// Schedule runs C1 (topological order) -> forward/backward pass -> C5
// (critical-chain identification, including leveling restricted to the
// critical path) -> C6 (feeding-chain extraction) -> C7 (resource
// leveling for every remaining task) -> C8 (buffer sizing) -> ALAP
// buffer placement, and commits the result as the project's immutable
// baseline. The whole operation is atomic: it runs against private
// clones of every task and a freshly built resource registry, and only
// replaces the scheduler's committed state once every phase has
// succeeded.
func (s *Scheduler) Schedule() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return nil, &ccpmerrors.ScheduleAlreadyBuilt{}
	}

	knownTasks := make(map[string]bool, len(s.taskSpecs))
	for id := range s.taskSpecs {
		knownTasks[id] = true
	}
	knownResources := make(map[string]bool, len(s.resourceSpecs))
	for _, r := range s.resourceSpecs {
		knownResources[r.Name] = true
	}

	working := make(map[string]*task.Task, len(s.taskSpecs))
	for _, id := range s.taskOrder {
		working[id] = s.taskSpecs[id].Clone()
	}
	for _, id := range s.taskOrder {
		if err := working[id].ValidateReferences(knownTasks, knownResources); err != nil {
			return nil, err
		}
	}

	deps := make(map[string][]string, len(working))
	for id, t := range working {
		deps[id] = t.Dependencies
	}

	order, err := ccpmgraph.TopoOrder(nodesFor(deps))
	if err != nil {
		return nil, err
	}

	registry := resource.NewRegistry()
	for _, r := range s.resourceSpecs {
		registry.Register(r.Name, r.Capacity, r.Calendar, r.AllowOverallocation)
	}

	ccpmgraph.ForwardBackwardPass(working, order, deps)
	dependents := ccpmgraph.ReverseGraph(nodesFor(deps))

	criticalChain, err := criticalchain.Identify(working, order, deps, registry, s.projectCal, s.startDate)
	if err != nil {
		return nil, err
	}

	feedingChains := feedingchain.Identify(working, deps, criticalChain)

	pinned := make(map[string]bool, len(criticalChain))
	for _, id := range criticalChain {
		pinned[id] = true
	}
	g := leveling.Graph{Dependencies: deps, Dependents: dependents}
	if _, err := leveling.Level(working, g, criticalChain, pinned, registry, s.projectCal, s.startDate); err != nil {
		return nil, err
	}

	chains := make(map[string]*task.Chain, len(feedingChains)+1)
	chainOrder := make([]string, 0, len(feedingChains)+1)
	buffers := make(map[string]*task.Buffer, len(feedingChains)+1)
	bufferOrder := make([]string, 0, len(feedingChains)+1)

	criticalChainObj := task.NewChain("critical", task.ChainCritical, criticalChain)
	chains[criticalChainObj.ID] = criticalChainObj
	chainOrder = append(chainOrder, criticalChainObj.ID)

	lastCritical := working[criticalChain[len(criticalChain)-1]]
	projectBufferSize := s.bufferStrategy.CalculateSize(buffer.Views(tasksByID(working, criticalChain)), criticalChainObj.BufferRatio)
	projectBuffer := task.NewBuffer("buffer-critical", task.BufferProject, projectBufferSize, lastCritical.ID, criticalChainObj.ID)
	projectBuffer.StartDate = lastCritical.EndDate
	projectBuffer.EndDate = s.projectCal.AddWorkdays(projectBuffer.StartDate, projectBufferSize)
	criticalChainObj.BufferID = projectBuffer.ID
	buffers[projectBuffer.ID] = projectBuffer
	bufferOrder = append(bufferOrder, projectBuffer.ID)

	for _, chain := range feedingChains {
		chains[chain.ID] = chain
		chainOrder = append(chainOrder, chain.ID)

		mergeTaskID := criticalMergePoint(deps, chain, criticalChain)
		size := s.bufferStrategy.CalculateSize(buffer.Views(tasksByID(working, chain.Tasks)), chain.BufferRatio)

		buf := task.NewBuffer("buffer-"+chain.ID, task.BufferFeeding, size, mergeTaskID, chain.ID)
		buf.EndDate = working[mergeTaskID].StartDate
		buf.StartDate = subtractWorkdays(s.projectCal, buf.EndDate, size)

		lastFeedingID := chain.Tasks[len(chain.Tasks)-1]
		lastFeeding := working[lastFeedingID]
		if lastFeeding.EndDate.After(buf.StartDate) {
			lastFeeding.EndDate = buf.StartDate
			lastFeeding.StartDate = subtractWorkdays(s.projectCal, lastFeeding.EndDate, lastFeeding.PlannedDuration)
		}

		chain.BufferID = buf.ID
		buffers[buf.ID] = buf
		bufferOrder = append(bufferOrder, buf.ID)
	}

	s.tasks = working
	s.order = order
	s.deps = deps
	s.resources = registry
	s.criticalChain = criticalChain
	s.chains = chains
	s.chainOrder = chainOrder
	s.buffers = buffers
	s.bufferOrder = bufferOrder
	s.built = true

	s.bus.Publish(events.TopicTask, events.ScheduleBuiltEvent{
		ProjectEnd:      projectBuffer.EndDate,
		CriticalChainID: criticalChainObj.ID,
		TaskCount:       len(working),
	})

	return s.snapshotLocked(), nil
}

// snapshotLocked builds a Snapshot from committed state. Callers must
// hold s.mu.
func (s *Scheduler) snapshotLocked() *Snapshot {
	tasks := make(map[string]*task.Task, len(s.tasks))
	for id, t := range s.tasks {
		tasks[id] = t.Clone()
	}

	feeding := make([]*task.Chain, 0, len(s.chainOrder)-1)
	for _, id := range s.chainOrder {
		if id != "critical" {
			feeding = append(feeding, cloneChain(s.chains[id]))
		}
	}

	buffers := make([]*task.Buffer, 0, len(s.bufferOrder))
	for _, id := range s.bufferOrder {
		buffers = append(buffers, cloneBuffer(s.buffers[id]))
	}

	return &Snapshot{
		Tasks:           tasks,
		CriticalChain:   cloneChain(s.chains["critical"]),
		FeedingChains:   feeding,
		Buffers:         buffers,
		ProjectStart:    s.startDate,
		ProjectEnd:      s.buffers["buffer-critical"].EndDate,
		CriticalChainID: append([]string(nil), s.criticalChain...),
	}
}

func cloneChain(c *task.Chain) *task.Chain {
	cp := *c
	cp.Tasks = append([]string(nil), c.Tasks...)
	return &cp
}

func cloneBuffer(b *task.Buffer) *task.Buffer {
	cp := *b
	cp.ConsumptionHistory = append([]task.ConsumptionRecord(nil), b.ConsumptionHistory...)
	return &cp
}

func tasksByID(tasks map[string]*task.Task, ids []string) []*task.Task {
	out := make([]*task.Task, len(ids))
	for i, id := range ids {
		out[i] = tasks[id]
	}
	return out
}

// criticalMergePoint returns the critical-chain task a feeding chain
// merges into: the critical-chain member that directly depends on the
// chain's last task.
func criticalMergePoint(deps map[string][]string, chain *task.Chain, criticalChain []string) string {
	lastFeeding := chain.Tasks[len(chain.Tasks)-1]
	for _, id := range criticalChain {
		for _, dep := range deps[id] {
			if dep == lastFeeding {
				return id
			}
		}
	}
	return criticalChain[len(criticalChain)-1]
}

// subtractWorkdays walks backward from end, consuming fractional
// availability per calendar day, and returns the date at which
// nWorkdays have been fully consumed — the mirror of
// calendar.Calendar.AddWorkdays, needed for ALAP buffer placement.
func subtractWorkdays(cal *calendar.Calendar, end time.Time, nWorkdays float64) time.Time {
	cursor := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	consumed := 0.0
	for consumed < nWorkdays-1e-9 {
		cursor = cursor.AddDate(0, 0, -1)
		consumed += cal.Availability(cursor)
	}
	return cursor
}

// UpdateTaskProgress records a new remaining-duration observation for a
// task, delegating the state-machine transition to task.Task.
// UpdateRemaining, and publishes TaskProgressUpdatedEvent (and
// TaskCompletedEvent if the update completed the task).
func (s *Scheduler) UpdateTaskProgress(taskID string, remaining float64, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.built {
		return &ccpmerrors.UnknownTaskID{TaskID: taskID}
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return &ccpmerrors.UnknownTaskID{TaskID: taskID}
	}

	wasCompleted := t.Status == task.Completed
	if err := t.UpdateRemaining(remaining, asOf); err != nil {
		return err
	}

	s.bus.Publish(events.TopicTask, events.TaskProgressUpdatedEvent{
		ID:          t.ID,
		Remaining:   t.RemainingDuration,
		ProgressPct: progressPct(t),
		AsOf:        asOf,
	})

	if !wasCompleted && t.Status == task.Completed {
		s.bus.Publish(events.TopicTask, events.TaskCompletedEvent{
			ID:              t.ID,
			ActualDuration:  t.ActualDuration(s.projectCal),
			PlannedDuration: t.PlannedDuration,
		})
	}

	return nil
}

func progressPct(t *task.Task) float64 {
	if len(t.ProgressHistory) == 0 {
		return 0
	}
	return t.ProgressHistory[len(t.ProgressHistory)-1].ProgressPct
}

// RecalculateNetworkFromProgress re-propagates start/end dates forward
// from in-progress and completed tasks, per spec.md §4.9-§4.10:
// completed tasks retain their actual dates, in-progress tasks end at
// as_of plus their remaining working days, and not-yet-started tasks
// start at the later of as_of and their latest predecessor's new end
// date. It then updates every buffer's consumption against its original
// ALAP placement and records one fever-chart point per chain.
func (s *Scheduler) RecalculateNetworkFromProgress(asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.built {
		return &ccpmerrors.ScheduleAlreadyBuilt{}
	}

	for _, id := range s.order {
		t := s.tasks[id]
		switch t.Status {
		case task.Completed:
			// Actual dates are authoritative; nothing to propagate.
		case task.InProgress:
			t.StartDate = *t.ActualStartDate
			t.EndDate = s.projectCal.AddWorkdays(asOf, t.RemainingDuration)
		default:
			floor := asOf
			for _, dep := range s.deps[id] {
				if depEnd := s.tasks[dep].EndDate; depEnd.After(floor) {
					floor = depEnd
				}
			}
			t.StartDate = floor
			t.EndDate = s.projectCal.AddWorkdays(floor, t.PlannedDuration)
		}
	}

	for _, chainID := range s.chainOrder {
		chain := s.chains[chainID]
		buf := s.buffers[chain.BufferID]

		newEnd := s.tasks[chain.Tasks[len(chain.Tasks)-1]].EndDate
		delay := execution.DelayWorkdays(s.projectCal, buf.StartDate, newEnd)
		remaining := execution.RemainingAfterDelay(buf.OriginalSize, delay)
		buf.SetRemaining(remaining, asOf)

		completion := execution.ChainCompletionPct(tasksByID(s.tasks, chain.Tasks))
		zone := execution.FeverZone(completion, buf.ConsumptionPct())

		s.feverHistory[chainID] = append(s.feverHistory[chainID], FeverPoint{
			Date:           asOf,
			CompletionPct:  completion,
			ConsumptionPct: buf.ConsumptionPct(),
			Zone:           zone,
		})

		kind := "project"
		if chain.Kind == task.ChainFeeding {
			kind = "feeding"
		}
		s.bus.Publish(events.TopicBuffer, events.BufferConsumptionUpdatedEvent{
			BufferID:       buf.ID,
			Kind:           kind,
			ConsumptionPct: buf.ConsumptionPct(),
			Zone:           string(zone),
			AsOf:           asOf,
		})
	}

	return nil
}

// FeverChartData returns, for every chain, the recorded series of
// (date, completion%, consumption%, zone) points from every
// RecalculateNetworkFromProgress call so far.
func (s *Scheduler) FeverChartData() map[string][]FeverPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]FeverPoint, len(s.feverHistory))
	for id, points := range s.feverHistory {
		out[id] = append([]FeverPoint(nil), points...)
	}
	return out
}

// Current returns the current committed schedule. Fails if schedule()
// has not yet been called.
func (s *Scheduler) Current() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.built {
		return nil, &ccpmerrors.ScheduleAlreadyBuilt{}
	}
	return s.snapshotLocked(), nil
}

// SortedTaskIDs returns every task id in the snapshot, ascending, for
// deterministic report iteration.
func (snap *Snapshot) SortedTaskIDs() []string {
	ids := make([]string, 0, len(snap.Tasks))
	for id := range snap.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
