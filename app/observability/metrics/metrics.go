package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	AccountsCreatedTotal   metric.Int64Counter
	VotesCastTotal         metric.Int64Counter
	VoteRejectionsTotal    metric.Int64Counter
	LoginAttemptsTotal     metric.Int64Counter
	LoginFailuresTotal     metric.Int64Counter
	DbQueryErrorsTotal     metric.Int64Counter
	VoteCommitConflicts    metric.Int64Counter
	RequestDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Init initializes the global metric instruments once, using the globally
// configured meter provider.
func Init() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("user-rating-service")
		var err error
		m := &AppMetrics{}

		m.AccountsCreatedTotal, err = meter.Int64Counter(
			"accounts_created_total",
			metric.WithDescription("Total number of accounts created"),
			metric.WithUnit("{account}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create accounts_created_total: %v", err)
		}

		m.VotesCastTotal, err = meter.Int64Counter(
			"votes_cast_total",
			metric.WithDescription("Total number of votes recorded"),
			metric.WithUnit("{vote}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create votes_cast_total: %v", err)
		}

		m.VoteRejectionsTotal, err = meter.Int64Counter(
			"vote_rejections_total",
			metric.WithDescription("Total number of votes rejected by validation"),
			metric.WithUnit("{vote}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create vote_rejections_total: %v", err)
		}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"login_attempts_total",
			metric.WithDescription("Total number of login attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_attempts_total: %v", err)
		}

		m.LoginFailuresTotal, err = meter.Int64Counter(
			"login_failures_total",
			metric.WithDescription("Total number of failed login attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_failures_total: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.VoteCommitConflicts, err = meter.Int64Counter(
			"vote_commit_conflicts_total",
			metric.WithDescription("Conditional vote updates that lost the race and were retried"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create vote_commit_conflicts_total: %v", err)
		}

		m.RequestDurationSeconds, err = meter.Float64Histogram(
			"request_duration_seconds",
			metric.WithDescription("Duration of handled requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create request_duration_seconds: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}

// Get returns the initialized instruments, initializing them on first use.
func Get() *AppMetrics {
	return Init()
}
