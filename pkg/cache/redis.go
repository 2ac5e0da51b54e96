package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Parhamrhh/course-registration-performance-testing/pkg/config"
)

// NewRedis returns a configured Redis client, or nil when caching is disabled.
func NewRedis(ctx context.Context, cfg config.RedisConfig, enabled bool) (*redis.Client, error) {
	if !enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Key helpers keep cache key layout in one place.
func SemesterListKey() string { return "catalog:semesters" }

func SemesterKey(id string) string { return "catalog:semester:" + id }

func SemesterCoursesKey(semesterID string) string { return "catalog:semester:" + semesterID + ":courses" }

func CourseKey(id string) string { return "catalog:course:" + id }

// AvailabilityKey scopes a course availability snapshot to the course's cache version.
func AvailabilityKey(courseID string, version int64) string {
	return "availability:course:" + courseID + ":v" + strconv.FormatInt(version, 10)
}

func AvailabilityVersionKey(courseID string) string { return "availability:course:" + courseID + ":version" }
