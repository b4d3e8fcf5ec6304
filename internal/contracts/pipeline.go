package contracts

import "fmt"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 리포트, metrics label에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   compute → extend → chart → publish
//   (reclaim은 watchdog으로 stale claim을 되돌림)

// Stage represents a pipeline stage
type Stage string

const (
	// StageCompute: 10 → 15 → 20
	// 책임: 판매 데이터 로드, 알고리즘 실행, Solicitudes_Compra artifact 기록
	// 위치: internal/pipeline/compute.go
	StageCompute Stage = "compute"

	// StageExtend: 20 → 30
	// 책임: product/site 매핑, item master 병합, Pronostico_Extendido 기록
	// 위치: internal/pipeline/extend.go
	StageExtend Stage = "extend"

	// StageChart: 30 → 35 → 40
	// 책임: 행별 진단 chart 생성, 신뢰구간 계산, 재개 가능한 checkpoint
	// 위치: internal/pipeline/chart.go
	StageChart Stage = "chart"

	// StagePublish: 40 → 45 → 50
	// 책임: 결과 batch insert, header 가치평가, artifact archive
	// 위치: internal/pipeline/publish.go
	StagePublish Stage = "publish"

	// StageReclaim: 15 → 10, 35 → 30
	// 책임: 오래된 claim 되돌리기 (45는 보고만)
	// 위치: internal/pipeline/reclaim.go
	StageReclaim Stage = "reclaim"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns the numbered stage name used in artifacts and logs
func (s Stage) ShortName() string {
	switch s {
	case StageCompute:
		return "S10"
	case StageExtend:
		return "S20"
	case StageChart:
		return "S30"
	case StagePublish:
		return "S40"
	case StageReclaim:
		return "WD"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageCompute:
		return "예측 계산"
	case StageExtend:
		return "참조 데이터 병합"
	case StageChart:
		return "그래프 생성"
	case StagePublish:
		return "결과 게시"
	case StageReclaim:
		return "stale claim 회수"
	default:
		return "알 수 없음"
	}
}

// Transition returns the statuses a stage moves an item through.
// claim is zero for stages that do not claim (extend).
func (s Stage) Transition() (from, claim, to Status) {
	switch s {
	case StageCompute:
		return StatusCreated, StatusComputing, StatusComputed
	case StageExtend:
		return StatusComputed, 0, StatusExtended
	case StageChart:
		return StatusExtended, StatusCharting, StatusCharted
	case StagePublish:
		return StatusCharted, StatusPublishing, StatusPublished
	default:
		return 0, 0, 0
	}
}

// AllStages returns the work stages in pipeline order
func AllStages() []Stage {
	return []Stage{
		StageCompute,
		StageExtend,
		StageChart,
		StagePublish,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	if Stage(s) == StageReclaim {
		return true
	}
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// ParseStage converts a CLI argument into a Stage
func ParseStage(s string) (Stage, error) {
	if !IsValidStage(s) {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return Stage(s), nil
}
