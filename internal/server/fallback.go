package server

import (
	"errors"
	"fmt"

	"github.com/voc-insights/vocdash/internal/report"
)

const (
	backendHint = "백엔드 프로세스가 실행 중인지, VOC_API_BASE_URL 설정이 올바른지 확인하세요."
	schemaHint  = "백엔드가 생성한 리포트 형식이 대시보드가 기대하는 스키마와 일치하는지 확인하세요."
)

// failure is the data for the fallback page.
type failure struct {
	Message string
	Hint    string
}

// describeFailure turns a fetch error into the single message the fallback
// page shows. Status failures carry the status code and text; transport
// failures do not.
func describeFailure(err error) failure {
	var ue *report.UnavailableError
	if errors.As(err, &ue) {
		switch {
		case ue.StatusCode != 0:
			return failure{
				Message: fmt.Sprintf("리포트 API가 오류 응답을 반환했습니다: %d %s", ue.StatusCode, ue.Status),
				Hint:    backendHint,
			}
		case ue.Timeout:
			return failure{Message: "리포트 API 응답 시간이 초과되었습니다.", Hint: backendHint}
		default:
			return failure{Message: "리포트 API에 연결할 수 없습니다.", Hint: backendHint}
		}
	}

	var me *report.MalformedError
	if errors.As(err, &me) {
		msg := "리포트 데이터 형식이 올바르지 않습니다."
		if me.Field != "" {
			msg = fmt.Sprintf("리포트 데이터 형식이 올바르지 않습니다 (%s: %s).", me.Field, me.Reason)
		}
		return failure{Message: msg, Hint: schemaHint}
	}

	return failure{Message: "리포트를 불러오지 못했습니다.", Hint: backendHint}
}
