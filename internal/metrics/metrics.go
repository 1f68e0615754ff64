// Package metrics exposes Prometheus counters for complaint lifecycle events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grievance_complaints_submitted_total",
		Help: "Complaints submitted by citizens",
	})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_escalations_total",
		Help: "Stage transitions by source stage and whether the handler tier changed",
	}, []string{"from_stage", "to_stage", "kind"})

	SecondStageSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_second_stage_submissions_total",
		Help: "Second-stage complaints opened, by stage",
	}, []string{"stage"})

	Responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_responses_total",
		Help: "Handler responses, by responder role",
	}, []string{"role"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_resolutions_total",
		Help: "Complaints resolved by citizen acceptance, by resolver role",
	}, []string{"role"})

	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_operation_rejections_total",
		Help: "Failed complaint operations, by operation and error code",
	}, []string{"operation", "code"})

	MetricWriteSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grievance_performance_skips_total",
		Help: "Office performance updates skipped because no accountable office was found",
	}, []string{"role"})
)

// Escalation kinds.
const (
	KindWithinHandler = "within_handler"
	KindCrossHandler  = "cross_handler"
)
