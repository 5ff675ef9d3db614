package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce           sync.Once
	lessonCompletions     *prometheus.CounterVec
	completionDuration    prometheus.Histogram
	pointsAwarded         prometheus.Counter
	achievementsGranted   *prometheus.CounterVec
	quizSubmissions       *prometheus.CounterVec
	leaderboardCacheReads *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		lessonCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "lesson_completions_total",
			Help:      "Lesson completion requests by outcome",
		}, []string{"status"})

		completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "lesson_completion_duration_seconds",
			Help:      "Time spent running the completion pipeline transaction",
			Buckets:   prometheus.DefBuckets,
		})

		pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "points_awarded_total",
			Help:      "Points credited to learners",
		})

		achievementsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "achievements_granted_total",
			Help:      "Achievements granted by type",
		}, []string{"type"})

		quizSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "quiz_submissions_total",
			Help:      "Quiz submissions by result",
		}, []string{"result"})

		leaderboardCacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "learning",
			Name:      "leaderboard_cache_reads_total",
			Help:      "Leaderboard reads by cache outcome",
		}, []string{"outcome"})
	})
}
