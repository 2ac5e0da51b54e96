package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

type remoteOptions struct {
	host       string
	semesterID string
	courseID   string
	students   []string
	password   string
	iterations int
	dropRatio  float64
	timeout    time.Duration
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

type apiClient struct {
	host string
	http *http.Client
}

type studentSession struct {
	number string
	token  string
}

func newRemoteCmd() *cobra.Command {
	opts := remoteOptions{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run concurrent registrations and drops against a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.courseID == "" || opts.semesterID == "" {
				return errors.New("--course and --semester are required")
			}
			client := &apiClient{host: strings.TrimRight(opts.host, "/"), http: &http.Client{Timeout: opts.timeout}}
			return runRemote(cmd.Context(), client, opts, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.host, "host", "http://localhost:8500", "API base URL including any prefix")
	flags.StringVar(&opts.semesterID, "semester", "", "semester id of the course (printed by seed)")
	flags.StringVar(&opts.courseID, "course", "", "course id to hammer (printed by seed)")
	flags.StringSliceVar(&opts.students, "students", defaultStudents(10), "student numbers to log in as")
	flags.StringVar(&opts.password, "password", "test123", "password shared by the test students")
	flags.IntVar(&opts.iterations, "iterations", 5, "register/drop iterations")
	flags.Float64Var(&opts.dropRatio, "drop-ratio", 0.5, "share of registered students dropping each iteration")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP client timeout")
	return cmd
}

// defaultStudents matches the numbers created by seed.
func defaultStudents(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = studentNumber(i)
	}
	return out
}

func runRemote(ctx context.Context, client *apiClient, opts remoteOptions, out io.Writer) error {
	sessions := make([]studentSession, len(opts.students))
	g, gctx := errgroup.WithContext(ctx)
	for i, number := range opts.students {
		g.Go(func() error {
			token, err := client.login(gctx, number, opts.password)
			if err != nil {
				return fmt.Errorf("login %s: %w", number, err)
			}
			sessions[i] = studentSession{number: number, token: token}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for iteration := 1; iteration <= opts.iterations; iteration++ {
		codes := client.fanOut(ctx, sessions, opts.courseID, "register")
		fmt.Fprintf(out, "iteration %d register: %s\n", iteration, formatCodes(codes))
		if err := client.check(ctx, sessions, opts); err != nil {
			return fmt.Errorf("iteration %d after register: %w", iteration, err)
		}

		rng.Shuffle(len(sessions), func(i, j int) { sessions[i], sessions[j] = sessions[j], sessions[i] })
		dropping := sessions[:int(float64(len(sessions))*opts.dropRatio)]
		codes = client.fanOut(ctx, dropping, opts.courseID, "drop")
		fmt.Fprintf(out, "iteration %d drop: %s\n", iteration, formatCodes(codes))
		if err := client.check(ctx, sessions, opts); err != nil {
			return fmt.Errorf("iteration %d after drop: %w", iteration, err)
		}
	}
	fmt.Fprintln(out, "invariants hold")
	return nil
}

// fanOut fires one request per session at once and tallies status codes. Transport failures
// count under status 0.
func (c *apiClient) fanOut(ctx context.Context, sessions []studentSession, courseID, action string) map[int]int {
	var (
		mu    sync.Mutex
		codes = map[int]int{}
		wg    sync.WaitGroup
	)
	for _, session := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := c.do(ctx, http.MethodPost, "/courses/"+courseID+"/"+action, session.token, nil, nil)
			mu.Lock()
			codes[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return codes
}

func (c *apiClient) check(ctx context.Context, sessions []studentSession, opts remoteOptions) error {
	var availability models.CourseAvailability
	if _, err := c.do(ctx, http.MethodGet, "/courses/"+opts.courseID+"/availability", "", nil, &availability); err != nil {
		return fmt.Errorf("availability: %w", err)
	}

	var positions []int
	enrolled := 0
	for _, session := range sessions {
		var courses []models.StudentCourse
		if _, err := c.do(ctx, http.MethodGet, "/semesters/"+opts.semesterID+"/my-courses", session.token, nil, &courses); err != nil {
			return fmt.Errorf("my-courses %s: %w", session.number, err)
		}
		for _, course := range courses {
			if course.CourseID != opts.courseID {
				continue
			}
			if course.Status == models.RegistrationStatusEnrolled {
				enrolled++
			} else if course.ReservePosition != nil {
				positions = append(positions, *course.ReservePosition)
			}
		}
	}
	return checkObserved(availability, enrolled, positions)
}

// checkObserved validates what the test students can see. Students outside the test set may hold
// further seats, so observed counts are bounded by the totals rather than equal to them.
func checkObserved(availability models.CourseAvailability, enrolled int, positions []int) error {
	if availability.Enrolled > availability.MaxCapacity {
		return fmt.Errorf("enrolled %d exceeds capacity %d", availability.Enrolled, availability.MaxCapacity)
	}
	if availability.Reserved > availability.ReserveLimit {
		return fmt.Errorf("reserved %d exceeds reserve limit %d", availability.Reserved, availability.ReserveLimit)
	}
	if enrolled > availability.Enrolled {
		return fmt.Errorf("observed %d enrolled, course reports %d", enrolled, availability.Enrolled)
	}
	sort.Ints(positions)
	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1] {
			return fmt.Errorf("reserve position %d held twice", positions[i])
		}
	}
	for _, p := range positions {
		if p < 1 || p > availability.Reserved {
			return fmt.Errorf("reserve position %d outside 1..%d", p, availability.Reserved)
		}
	}
	return nil
}

func (c *apiClient) login(ctx context.Context, number, password string) (string, error) {
	var res models.LoginResponse
	body := models.LoginRequest{StudentNumber: number, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &res); err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// do sends a request and decodes the data member of the envelope into dest when non-nil.
// Non-2xx responses return the status together with the API error.
func (c *apiClient) do(ctx context.Context, method, path, token string, payload, dest interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			return resp.StatusCode, env.Error
		}
		return resp.StatusCode, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return resp.StatusCode, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func formatCodes(codes map[int]int) string {
	keys := make([]int, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, code := range keys {
		parts = append(parts, fmt.Sprintf("%d=%d", code, codes[code]))
	}
	return strings.Join(parts, " ")
}
