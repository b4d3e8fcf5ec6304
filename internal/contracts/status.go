package contracts

import (
	"errors"
	"fmt"
)

// Execution status 정의 (SSOT)
// ExecutionExecute.status 컬럼의 모든 값은 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   10 → 15 → 20 → 30 → 35 → 40 → 45 → 50
//   created  computing  computed  extended  charting  charted  publishing  published

// Status is the position of one ExecutionExecute in the pipeline
type Status int

const (
	// StatusCreated 10: 생성됨, 계산 대기
	StatusCreated Status = 10

	// StatusComputing 15: compute 단계가 claim한 상태
	StatusComputing Status = 15

	// StatusComputed 20: 예측 계산 완료, 캐시 artifact 기록됨
	StatusComputed Status = 20

	// StatusExtended 30: reference/master 데이터 병합 완료
	StatusExtended Status = 30

	// StatusCharting 35: chart 단계가 claim한 상태
	StatusCharting Status = 35

	// StatusCharted 40: chart 생성 완료, publish 대기
	StatusCharted Status = 40

	// StatusPublishing 45: publish 단계가 claim한 상태
	StatusPublishing Status = 45

	// StatusPublished 50: downstream에 게시 완료 (terminal)
	StatusPublished Status = 50
)

var (
	// ErrIllegalTransition is returned when a status change is not in the transition table
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrClaimLost is returned when a conditional update matched no row
	ErrClaimLost = errors.New("claim lost: row is no longer at the expected status")
)

// transitions is the legal-transition table.
// Forward edges drive the pipeline; 15→10 and 35→30 are watchdog requeues.
var transitions = map[Status][]Status{
	StatusCreated:    {StatusComputing},
	StatusComputing:  {StatusComputed, StatusCreated},
	StatusComputed:   {StatusExtended},
	StatusExtended:   {StatusCharting},
	StatusCharting:   {StatusCharted, StatusExtended},
	StatusCharted:    {StatusPublishing},
	StatusPublishing: {StatusPublished},
}

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusComputing:
		return "computing"
	case StatusComputed:
		return "computed"
	case StatusExtended:
		return "extended"
	case StatusCharting:
		return "charting"
	case StatusCharted:
		return "charted"
	case StatusPublishing:
		return "publishing"
	case StatusPublished:
		return "published"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsValid reports whether s is one of the known codes
func (s Status) IsValid() bool {
	for _, st := range AllStatuses() {
		if st == s {
			return true
		}
	}
	return false
}

// IsClaim reports whether s is an in-progress claim status (15/35/45)
func (s Status) IsClaim() bool {
	return s == StatusComputing || s == StatusCharting || s == StatusPublishing
}

// IsTerminal reports whether s has no outgoing edge
func (s Status) IsTerminal() bool {
	return s == StatusPublished
}

// CanTransition reports whether from → to is in the transition table
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrIllegalTransition when from → to is not allowed
func ValidateTransition(from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %d(%s) → %d(%s)", ErrIllegalTransition, from, from, to, to)
	}
	return nil
}

// AllStatuses returns all statuses in pipeline order
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusComputing,
		StatusComputed,
		StatusExtended,
		StatusCharting,
		StatusCharted,
		StatusPublishing,
		StatusPublished,
	}
}

// ParseStatus converts a stored code back to a Status
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if !s.IsValid() {
		return 0, fmt.Errorf("unknown status code %d", code)
	}
	return s, nil
}

// RequeueTarget returns where the watchdog moves a stale claim.
// 45는 commit된 batch가 남아 있을 수 있어 자동 회수 대상이 아님
func (s Status) RequeueTarget() (Status, bool) {
	switch s {
	case StatusComputing:
		return StatusCreated, true
	case StatusCharting:
		return StatusExtended, true
	default:
		return 0, false
	}
}
