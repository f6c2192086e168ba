// Package resource implements the resource registry (C3): named capacity
// pools with per-day allocation bookkeeping, transactional multi-day
// allocate/deallocate, and overallocation detection. The registry is owned
// by the scheduler; no other component mutates its calendars or
// allocations directly.
package resource

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/ccpmerrors"
)

// allocation is one task's claim on a resource for one calendar day.
type allocation struct {
	taskID string
	units  float64
}

// Violation is one day on which a resource's AllowOverallocation let an
// allocation through despite exceeding availability·capacity.
type Violation struct {
	Day       time.Time
	Requested float64
	Available float64
}

// Resource is a named capacity pool with its own calendar of availability
// multipliers and day-by-day allocation ledger.
type Resource struct {
	Name                string
	Capacity            float64
	Calendar            *calendar.Calendar
	AllowOverallocation bool
	Tags                []string

	allocations map[time.Time][]allocation
	violations  []Violation
}

// Registry holds every resource in a project, keyed by name, guarded by a
// single mutex — mirroring the per-key-map-with-manager-mutex shape used
// for file locks elsewhere in this lineage, generalized from booleans to
// day/unit bookkeeping.
type Registry struct {
	mu        sync.Mutex
	resources map[string]*Resource
}

// NewRegistry creates an empty resource registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]*Resource)}
}

// Register adds a resource with the given name, capacity, and calendar. A
// nil calendar defaults to calendar.New(): Monday to Friday at full
// capacity, weekends unavailable.
func (r *Registry) Register(name string, capacity float64, cal *calendar.Calendar, allowOverallocation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cal == nil {
		cal = calendar.New()
	}
	r.resources[name] = &Resource{
		Name:                name,
		Capacity:            capacity,
		Calendar:            cal,
		AllowOverallocation: allowOverallocation,
		allocations:         make(map[time.Time][]allocation),
	}
}

// Names returns every registered resource name, ascending, for deterministic
// iteration.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dayKey(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// available returns the resource's free capacity on day, assuming the
// registry mutex is already held.
func (r *Registry) available(res *Resource, day time.Time) float64 {
	total := res.Capacity * res.Calendar.Availability(day)
	var used float64
	for _, a := range res.allocations[dayKey(day)] {
		used += a.units
	}
	rem := total - used
	if rem < 0 {
		return 0
	}
	return rem
}

// Utilization returns the total units allocated to name on day.
func (r *Registry) Utilization(name string, day time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return 0
	}
	var used float64
	for _, a := range res.allocations[dayKey(day)] {
		used += a.units
	}
	return used
}

// Capacity returns the nominal (calendar-unadjusted) capacity of name.
func (r *Registry) Capacity(name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return 0, &ccpmerrors.UnknownResourceName{Name: name}
	}
	return res.Capacity, nil
}

// Available returns the free capacity of name on day.
func (r *Registry) Available(name string, day time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return 0, &ccpmerrors.UnknownResourceName{Name: name}
	}
	return r.available(res, day), nil
}

// Allocate records taskID's claim on units of name on day, raising
// ResourceOverallocationError if it would exceed availability·capacity and
// the resource does not allow overallocation.
func (r *Registry) Allocate(name string, day time.Time, units float64, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return &ccpmerrors.UnknownResourceName{Name: name}
	}

	key := dayKey(day)
	avail := r.available(res, day)
	if units > avail {
		if !res.AllowOverallocation {
			return &ccpmerrors.ResourceOverallocationError{
				Resource:  name,
				Day:       key,
				Requested: units,
				Available: avail,
			}
		}
		res.violations = append(res.violations, Violation{Day: key, Requested: units, Available: avail})
	}

	res.allocations[key] = append(res.allocations[key], allocation{taskID: taskID, units: units})
	return nil
}

// Deallocate removes taskID's allocation of name on day, if any.
func (r *Registry) Deallocate(name string, day time.Time, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return
	}

	key := dayKey(day)
	entries := res.allocations[key]
	for i, a := range entries {
		if a.taskID == taskID {
			res.allocations[key] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(res.allocations[key]) == 0 {
		delete(res.allocations, key)
	}
}

// AllocateSpan allocates name for taskID on every working day from start
// for workdays working-days' worth of elapsed calendar time, consuming
// units per day. The whole span is transactional: if any day fails, every
// prior day allocated in this call is rolled back before the error returns.
func (r *Registry) AllocateSpan(name string, start time.Time, workdays, units float64, taskID string) error {
	res, err := r.resourceRef(name)
	if err != nil {
		return err
	}

	var allocated []time.Time
	cursor := start
	var consumed float64
	for consumed < workdays-1e-9 {
		avail := res.Calendar.Availability(cursor)
		if avail > 0 {
			if err := r.Allocate(name, cursor, units, taskID); err != nil {
				for _, d := range allocated {
					r.Deallocate(name, d, taskID)
				}
				return err
			}
			allocated = append(allocated, cursor)
			consumed += avail
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return nil
}

// FitsSpan reports whether name has capacity for units on every working day
// of a workdays-long span starting at start, without allocating anything.
// Leveling uses this to probe candidate start dates before committing.
func (r *Registry) FitsSpan(name string, start time.Time, workdays, units float64) bool {
	r.mu.Lock()
	res, ok := r.resources[name]
	r.mu.Unlock()
	if !ok {
		return false
	}

	cursor := start
	var consumed float64
	for consumed < workdays-1e-9 {
		avail := res.Calendar.Availability(cursor)
		if avail > 0 {
			r.mu.Lock()
			free := r.available(res, cursor)
			r.mu.Unlock()
			if units > free {
				return false
			}
			consumed += avail
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return true
}

func (r *Registry) resourceRef(name string) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return nil, &ccpmerrors.UnknownResourceName{Name: name}
	}
	return res, nil
}

// Violations returns every recorded overallocation for name, oldest first.
// Only populated for resources with AllowOverallocation set — a resource
// that rejects overallocation never accumulates one, since Allocate fails
// instead.
func (r *Registry) Violations(name string) ([]Violation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[name]
	if !ok {
		return nil, &ccpmerrors.UnknownResourceName{Name: name}
	}
	return append([]Violation(nil), res.violations...), nil
}

// IsOverallocated scans every resource's allocations for any day on which
// allocated units exceed availability·capacity.
func (r *Registry) IsOverallocated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range r.resources {
		for day, entries := range res.allocations {
			var used float64
			for _, a := range entries {
				used += a.units
			}
			if used > res.Capacity*res.Calendar.Availability(day)+1e-9 {
				return true
			}
		}
	}
	return false
}
