package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/config"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/database"
)

const (
	firstStudentNumber = 10000
	maxSeedStudents    = 10000
	loadSemesterName   = "Load Test"
	loadCourseName     = "Race Check"
)

const (
	upsertStudentQuery = `INSERT INTO students (student_number, password_hash, name) VALUES ($1, $2, $3)
        ON CONFLICT (student_number) DO UPDATE SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name, updated_at = NOW()
        RETURNING id, (xmax = 0) AS inserted`
	upsertSemesterQuery = `INSERT INTO semesters (name, registration_start, registration_end) VALUES ($1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET registration_start = EXCLUDED.registration_start, registration_end = EXCLUDED.registration_end, updated_at = NOW()
        RETURNING id, (xmax = 0) AS inserted`
	upsertCourseQuery = `INSERT INTO courses (semester_id, course_name, professor, schedule, max_capacity, reserve_limit) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (semester_id, course_name) DO UPDATE SET professor = EXCLUDED.professor, schedule = EXCLUDED.schedule,
            max_capacity = EXCLUDED.max_capacity, reserve_limit = EXCLUDED.reserve_limit, updated_at = NOW()
        RETURNING id, (xmax = 0) AS inserted`
)

type seedSemester struct {
	name  string
	start time.Time
	end   time.Time
}

type seedCourse struct {
	semester  string
	name      string
	professor string
	schedule  string
	capacity  int
	reserve   int
}

var catalogSemesters = []seedSemester{
	{name: "Fall 2025", start: utc(2025, time.September, 22, 8), end: utc(2025, time.September, 24, 23)},
	{name: "Winter 2025", start: utc(2025, time.January, 10, 8), end: utc(2025, time.January, 12, 23)},
	{name: "Summer 2026", start: utc(2026, time.July, 1, 8), end: utc(2026, time.July, 3, 23)},
	{name: "Spring 2026", start: utc(2026, time.February, 1, 8), end: utc(2026, time.February, 3, 23)},
	{name: "Fall 2026", start: utc(2026, time.September, 1, 8), end: utc(2026, time.September, 3, 23)},
	{name: "Winter 2026", start: utc(2026, time.January, 5, 8), end: utc(2026, time.January, 7, 23)},
	{name: "Spring 2027", start: utc(2027, time.February, 1, 8), end: utc(2027, time.February, 3, 23)},
	{name: "Summer 2027", start: utc(2027, time.June, 1, 8), end: utc(2027, time.June, 3, 23)},
}

var catalogCourses = []seedCourse{
	{semester: "Fall 2025", name: "Computer Architecture", professor: "James", schedule: "Sat/Mon 14:00-16:00", capacity: 45, reserve: 10},
	{semester: "Fall 2025", name: "Algorithms", professor: "Alice", schedule: "Tue/Thu 10:00-11:30", capacity: 60, reserve: 10},
	{semester: "Winter 2025", name: "Data Structures", professor: "Bob", schedule: "Mon/Wed 09:00-10:30", capacity: 55, reserve: 10},
	{semester: "Winter 2025", name: "Operating Systems", professor: "Carol", schedule: "Tue/Thu 14:00-15:30", capacity: 50, reserve: 10},
	{semester: "Summer 2026", name: "Databases", professor: "Dave", schedule: "Mon/Wed 13:00-14:30", capacity: 50, reserve: 10},
	{semester: "Summer 2026", name: "Computer Networks", professor: "Eve", schedule: "Tue/Thu 09:00-10:30", capacity: 45, reserve: 10},
	{semester: "Fall 2025", name: "Machine Learning", professor: "Dr. Smith", schedule: "Mon/Wed 10:00-11:30", capacity: 50, reserve: 10},
	{semester: "Winter 2025", name: "Web Development", professor: "Dr. Johnson", schedule: "Tue/Thu 14:00-15:30", capacity: 60, reserve: 10},
	{semester: "Summer 2026", name: "Mobile App Development", professor: "Dr. Williams", schedule: "Mon/Wed 13:00-14:30", capacity: 45, reserve: 10},
	{semester: "Spring 2026", name: "Cloud Computing", professor: "Dr. Brown", schedule: "Tue/Thu 09:00-10:30", capacity: 55, reserve: 10},
	{semester: "Fall 2026", name: "Cybersecurity", professor: "Dr. Davis", schedule: "Mon/Wed 15:00-16:30", capacity: 40, reserve: 10},
	{semester: "Winter 2026", name: "Software Engineering", professor: "Dr. Miller", schedule: "Tue/Thu 11:00-12:30", capacity: 50, reserve: 10},
	{semester: "Spring 2027", name: "Artificial Intelligence", professor: "Dr. Wilson", schedule: "Mon/Wed 11:00-12:30", capacity: 45, reserve: 10},
	{semester: "Summer 2027", name: "Blockchain Technology", professor: "Dr. Moore", schedule: "Tue/Thu 13:00-14:30", capacity: 35, reserve: 10},
	{semester: "Fall 2025", name: "Game Development", professor: "Dr. Taylor", schedule: "Mon/Wed 14:00-15:30", capacity: 40, reserve: 10},
	{semester: "Winter 2025", name: "Data Science", professor: "Dr. Anderson", schedule: "Tue/Thu 10:00-11:30", capacity: 55, reserve: 10},
}

type seedOptions struct {
	students  int
	password  string
	hashCost  int
	semesters []seedSemester
	courses   []seedCourse
}

type seedReport struct {
	StudentsCreated  int
	StudentsUpdated  int
	SemestersCreated int
	SemestersUpdated int
	CoursesCreated   int
	CoursesUpdated   int
	SemesterIDs      map[string]string
	CourseIDs        map[string]string
}

type upsertedRow struct {
	ID       string `db:"id"`
	Inserted bool   `db:"inserted"`
}

func newSeedCmd() *cobra.Command {
	var (
		opts     = seedOptions{hashCost: bcrypt.DefaultCost}
		catalog  bool
		openFor  time.Duration
		capacity int
		reserve  int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update the test students, semesters and courses used by remote",
		Long: `seed upserts students STU10000 onwards sharing one password, the reference semester and
course catalog, and a "Load Test" semester whose registration window is open now with a single
"Race Check" course. Re-running it updates rows in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			if catalog {
				opts.semesters = append(opts.semesters, catalogSemesters...)
				opts.courses = append(opts.courses, catalogCourses...)
			}
			now := time.Now().UTC()
			opts.semesters = append(opts.semesters, seedSemester{name: loadSemesterName, start: now.Add(-time.Hour), end: now.Add(openFor)})
			opts.courses = append(opts.courses, seedCourse{
				semester:  loadSemesterName,
				name:      loadCourseName,
				professor: "Load Harness",
				schedule:  "Mon/Wed 08:00-09:30",
				capacity:  capacity,
				reserve:   reserve,
			})

			report, err := seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			printSeedReport(cmd.OutOrStdout(), opts, report)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.students, "students", 1000, "number of test students to upsert")
	flags.StringVar(&opts.password, "password", "test123", "password shared by the test students")
	flags.BoolVar(&catalog, "catalog", true, "also upsert the reference semesters and courses")
	flags.DurationVar(&openFor, "open-for", 24*time.Hour, "how long the load test registration window stays open")
	flags.IntVar(&capacity, "capacity", 10, "load test course max capacity")
	flags.IntVar(&reserve, "reserve", models.DefaultReserveLimit, "load test course reserve limit")
	return cmd
}

// seed upserts every row in one transaction so a failure leaves the database untouched.
func seed(ctx context.Context, db *sqlx.DB, opts seedOptions) (report seedReport, err error) {
	if opts.students < 0 || opts.students > maxSeedStudents {
		return report, fmt.Errorf("students must be between 0 and %d", maxSeedStudents)
	}
	if opts.password == "" {
		return report, errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.password), opts.hashCost)
	if err != nil {
		return report, fmt.Errorf("hash password: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := 0; i < opts.students; i++ {
		number := studentNumber(i)
		var row upsertedRow
		if err = tx.GetContext(ctx, &row, upsertStudentQuery, number, string(hash), "Test Student "+number); err != nil {
			return report, fmt.Errorf("upsert student %s: %w", number, err)
		}
		tally(row.Inserted, &report.StudentsCreated, &report.StudentsUpdated)
	}

	report.SemesterIDs = make(map[string]string, len(opts.semesters))
	for _, sem := range opts.semesters {
		var row upsertedRow
		if err = tx.GetContext(ctx, &row, upsertSemesterQuery, sem.name, sem.start, sem.end); err != nil {
			return report, fmt.Errorf("upsert semester %s: %w", sem.name, err)
		}
		report.SemesterIDs[sem.name] = row.ID
		tally(row.Inserted, &report.SemestersCreated, &report.SemestersUpdated)
	}

	report.CourseIDs = make(map[string]string, len(opts.courses))
	for _, course := range opts.courses {
		semesterID, ok := report.SemesterIDs[course.semester]
		if !ok {
			err = fmt.Errorf("course %s references unseeded semester %q", course.name, course.semester)
			return report, err
		}
		var row upsertedRow
		if err = tx.GetContext(ctx, &row, upsertCourseQuery, semesterID, course.name, course.professor, course.schedule, course.capacity, course.reserve); err != nil {
			return report, fmt.Errorf("upsert course %s: %w", course.name, err)
		}
		report.CourseIDs[courseKey(course.semester, course.name)] = row.ID
		tally(row.Inserted, &report.CoursesCreated, &report.CoursesUpdated)
	}

	if err = tx.Commit(); err != nil {
		return report, fmt.Errorf("commit seed transaction: %w", err)
	}
	return report, nil
}

func printSeedReport(out io.Writer, opts seedOptions, report seedReport) {
	if opts.students > 0 {
		fmt.Fprintf(out, "students: created %d, updated %d (%s..%s, password %q)\n",
			report.StudentsCreated, report.StudentsUpdated, studentNumber(0), studentNumber(opts.students-1), opts.password)
	}
	fmt.Fprintf(out, "semesters: created %d, updated %d\n", report.SemestersCreated, report.SemestersUpdated)
	fmt.Fprintf(out, "courses: created %d, updated %d\n", report.CoursesCreated, report.CoursesUpdated)
	if courseID, ok := report.CourseIDs[courseKey(loadSemesterName, loadCourseName)]; ok {
		fmt.Fprintf(out, "remote flags: --semester %s --course %s\n", report.SemesterIDs[loadSemesterName], courseID)
	}
}

func studentNumber(i int) string {
	return fmt.Sprintf("STU%05d", firstStudentNumber+i)
}

func courseKey(semester, course string) string {
	return semester + "/" + course
}

func tally(inserted bool, created, updated *int) {
	if inserted {
		*created++
		return
	}
	*updated++
}

func utc(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
