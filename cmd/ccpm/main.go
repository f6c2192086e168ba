package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/ccpm/internal/calendar"
	"github.com/aristath/ccpm/internal/config"
	"github.com/aristath/ccpm/internal/report"
	"github.com/aristath/ccpm/internal/scheduler"
	"github.com/aristath/ccpm/internal/task"
	"github.com/aristath/ccpm/internal/tui"
)

func main() {
	reportOnly := flag.Bool("report", false, "print the schedule report and exit, instead of launching the dashboard")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	def, globalPath, projectPath, err := loadProject()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading project: %v\n", err)
		os.Exit(1)
	}

	sched, snap, cal, err := buildSchedule(def)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building schedule: %v\n", err)
		os.Exit(1)
	}
	defer sched.Events().Close()

	if *reportOnly {
		fmt.Print(report.Schedule(snap, cal))
		return
	}

	model := tui.New(sched, snap, def, globalPath, projectPath)
	p := tea.NewProgram(model, tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		log.Println("Shutdown signal received, cleaning up...")

		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			if err != nil {
				log.Printf("dashboard exit error: %v", err)
			}
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}

	log.Println("Shutdown complete")
}

// loadProject reads the global and project ProjectDefinition files,
// merging per internal/config's precedence rules, and returns the paths
// it checked so the dashboard's settings pane can write back to them.
func loadProject() (*config.ProjectDefinition, string, string, error) {
	def, err := config.LoadDefault()
	if err != nil {
		return nil, "", "", err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", "", err
	}
	globalPath := filepath.Join(homeDir, ".ccpm", "project.json")
	projectPath := filepath.Join(".ccpm", "project.json")

	return def, globalPath, projectPath, nil
}

// buildSchedule turns a loaded ProjectDefinition into a built Scheduler
// snapshot: it registers every resource and task, then runs Schedule().
func buildSchedule(def *config.ProjectDefinition) (*scheduler.Scheduler, *scheduler.Snapshot, *calendar.Calendar, error) {
	startDate := time.Now()
	if def.StartDate != "" {
		d, err := time.Parse("2006-01-02", def.StartDate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing start date %q: %w", def.StartDate, err)
		}
		startDate = d
	}

	sched := scheduler.New(startDate, def.BufferStrategy)

	cal := calendar.New()
	if err := sched.SetProjectCalendar(cal); err != nil {
		return nil, nil, nil, err
	}

	var resourceInputs []scheduler.ResourceInput
	for name, rd := range def.Resources {
		resCal := calendar.New()
		for _, p := range rd.UnavailablePeriods {
			from, err := time.Parse("2006-01-02", p.Start)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("resource %q unavailable period start %q: %w", name, p.Start, err)
			}
			to, err := time.Parse("2006-01-02", p.End)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("resource %q unavailable period end %q: %w", name, p.End, err)
			}
			resCal.AddUnavailablePeriod(from, to)
		}
		resourceInputs = append(resourceInputs, scheduler.ResourceInput{
			Name:                name,
			Capacity:            rd.Capacity,
			Calendar:            resCal,
			AllowOverallocation: rd.AllowOverallocation,
		})
	}
	if err := sched.SetResources(resourceInputs); err != nil {
		return nil, nil, nil, err
	}

	for id, td := range def.Tasks {
		var reqs []task.ResourceRequirement
		for _, r := range td.Resources {
			reqs = append(reqs, task.ResourceRequirement{Name: r.Name, Units: r.Units})
		}
		if _, err := sched.AddTask(scheduler.TaskInput{
			ID:                 id,
			Name:               td.Name,
			AggressiveDuration: td.AggressiveDuration,
			SafeDuration:       td.SafeDuration,
			Dependencies:       td.Dependencies,
			Resources:          reqs,
		}); err != nil {
			return nil, nil, nil, fmt.Errorf("adding task %q: %w", id, err)
		}
	}

	snap, err := sched.Schedule()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building schedule: %w", err)
	}

	return sched, snap, cal, nil
}
