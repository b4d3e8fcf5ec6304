package contracts

import (
	"fmt"
	"strings"
	"time"
)

// FailureKind classifies why a work item failed
type FailureKind string

const (
	FailureConnectivity   FailureKind = "connectivity"    // 데이터 소스 연결 실패
	FailureReferential    FailureKind = "referential"     // product/site 매핑 누락
	FailureFit            FailureKind = "fit"             // 모델 fit 실패
	FailureSerialization  FailureKind = "serialization"   // artifact 읽기/쓰기 실패
	FailurePartialPublish FailureKind = "partial-publish" // 일부 batch만 게시됨
	FailureValidation     FailureKind = "validation"      // 파라미터/입력 검증 실패
	FailureInternal       FailureKind = "internal"
)

// Outcome is the per-item result of a stage batch
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// ItemResult is the outcome of one work item within a batch
type ItemResult struct {
	ExecuteID     string        `json:"execute_id"`
	ExecutionName string        `json:"execution_name"`
	Outcome       Outcome       `json:"outcome"`
	Kind          FailureKind   `json:"kind,omitempty"`
	Err           error         `json:"-"`
	Detail        string        `json:"detail,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// BatchReport summarizes one stage invocation
type BatchReport struct {
	Stage     string       `json:"stage"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Items     []ItemResult `json:"items"`
}

// NewBatchReport starts a report for stage
func NewBatchReport(stage string) *BatchReport {
	return &BatchReport{Stage: stage, StartedAt: time.Now()}
}

// Add records one item result
func (r *BatchReport) Add(res ItemResult) {
	r.Items = append(r.Items, res)
}

// Finish stamps the end time
func (r *BatchReport) Finish() {
	r.EndedAt = time.Now()
}

// Count returns the number of items with the given outcome
func (r *BatchReport) Count(o Outcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the failed items
func (r *BatchReport) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome == OutcomeFailed {
			out = append(out, it)
		}
	}
	return out
}

// Summary returns a one-line human summary
func (r *BatchReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d items (%d succeeded, %d failed, %d skipped)",
		r.Stage, len(r.Items), r.Count(OutcomeSucceeded), r.Count(OutcomeFailed), r.Count(OutcomeSkipped))
	if !r.EndedAt.IsZero() {
		fmt.Fprintf(&b, " in %s", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}
