package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
)

type simulateOptions struct {
	students    int
	capacity    int
	reserve     int
	rounds      int
	dropRatio   float64
	seed        int64
	lockTimeout time.Duration
}

type simulationReport struct {
	Enrolled   int64
	Reserved   int64
	Full       int64
	Duplicate  int64
	Busy       int64
	Dropped    int64
	Promoted   int64
	FinalState []models.Registration
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run concurrent registrations and drops against the in-memory engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := simulate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "enrolled=%d reserved=%d full=%d duplicate=%d busy=%d dropped=%d promoted=%d\n",
				report.Enrolled, report.Reserved, report.Full, report.Duplicate, report.Busy, report.Dropped, report.Promoted)
			fmt.Fprintf(out, "final roster: %d rows, invariants hold\n", len(report.FinalState))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.students, "students", 100, "concurrent students per round")
	flags.IntVar(&opts.capacity, "capacity", 10, "course max capacity")
	flags.IntVar(&opts.reserve, "reserve", models.DefaultReserveLimit, "course reserve limit")
	flags.IntVar(&opts.rounds, "rounds", 5, "register/drop rounds")
	flags.Float64Var(&opts.dropRatio, "drop-ratio", 0.3, "share of registered students dropping each round")
	flags.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for drop selection")
	flags.DurationVar(&opts.lockTimeout, "lock-timeout", 5*time.Second, "per-course lock wait bound")
	return cmd
}

func simulate(ctx context.Context, opts simulateOptions) (simulationReport, error) {
	if opts.students <= 0 || opts.capacity <= 0 || opts.reserve < 0 || opts.rounds <= 0 {
		return simulationReport{}, errors.New("students, capacity and rounds must be positive and reserve non-negative")
	}

	store := registration.NewMemoryStore()
	now := time.Now()
	course := models.CourseDetail{
		Course: models.Course{
			ID:           uuid.NewString(),
			CourseName:   "race-check",
			MaxCapacity:  opts.capacity,
			ReserveLimit: opts.reserve,
		},
		RegistrationStart: now.Add(-time.Hour),
		RegistrationEnd:   now.Add(24 * time.Hour),
	}
	store.PutCourse(course)

	students := make([]string, opts.students)
	for i := range students {
		students[i] = uuid.NewString()
		store.PutStudent(students[i])
	}

	engine := registration.NewEngine(store, registration.Options{LockTimeout: opts.lockTimeout})
	rng := rand.New(rand.NewSource(opts.seed))
	report := simulationReport{}

	for round := 1; round <= opts.rounds; round++ {
		if err := registerAll(ctx, engine, course.ID, students, &report); err != nil {
			return report, fmt.Errorf("round %d register: %w", round, err)
		}
		if err := registration.Verify(course.Course, store.Registrations(course.ID)); err != nil {
			return report, fmt.Errorf("round %d after register: %w", round, err)
		}

		if err := dropSome(ctx, engine, course.ID, store.Registrations(course.ID), opts.dropRatio, rng, &report); err != nil {
			return report, fmt.Errorf("round %d drop: %w", round, err)
		}
		if err := registration.Verify(course.Course, store.Registrations(course.ID)); err != nil {
			return report, fmt.Errorf("round %d after drop: %w", round, err)
		}
	}

	report.FinalState = store.Registrations(course.ID)
	return report, nil
}

func registerAll(ctx context.Context, engine *registration.Engine, courseID string, students []string, report *simulationReport) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, studentID := range students {
		g.Go(func() error {
			outcome, err := engine.Register(gctx, studentID, courseID)
			switch {
			case err == nil && outcome.Status == models.RegistrationStatusEnrolled:
				atomic.AddInt64(&report.Enrolled, 1)
			case err == nil:
				atomic.AddInt64(&report.Reserved, 1)
			case errors.Is(err, registration.ErrCourseFull):
				atomic.AddInt64(&report.Full, 1)
			case errors.Is(err, registration.ErrAlreadyRegistered):
				atomic.AddInt64(&report.Duplicate, 1)
			case errors.Is(err, registration.ErrBusy):
				atomic.AddInt64(&report.Busy, 1)
			default:
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func dropSome(ctx context.Context, engine *registration.Engine, courseID string, rows []models.Registration, ratio float64, rng *rand.Rand, report *simulationReport) error {
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	count := int(float64(len(rows)) * ratio)

	g, gctx := errgroup.WithContext(ctx)
	for _, row := range rows[:count] {
		g.Go(func() error {
			result, err := engine.Drop(gctx, row.StudentID, courseID)
			switch {
			case err == nil:
				atomic.AddInt64(&report.Dropped, 1)
				if result.Promoted != nil {
					atomic.AddInt64(&report.Promoted, 1)
				}
			case errors.Is(err, registration.ErrBusy):
				atomic.AddInt64(&report.Busy, 1)
			default:
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
