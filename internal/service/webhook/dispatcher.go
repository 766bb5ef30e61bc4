package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
)

// Result 하나의 웹훅 URL에 대한 발송 결과입니다.
type Result struct {
	// URL 발송 대상 웹훅 URL입니다.
	URL string

	// Err 발송 실패 원인입니다. 성공 시 nil입니다.
	Err error
}

// Dispatcher 웹훅 메시지를 여러 URL로 동시에 발송합니다.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher 기본 타임아웃(10초)이 설정된 새로운 Dispatcher를 생성합니다.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Dispatch 메시지를 모든 URL로 동시에 발송하고, URL별 발송 결과를 반환합니다.
// 일부 URL의 발송 실패는 다른 URL의 발송에 영향을 주지 않으며,
// 모든 발송이 완료(성공 또는 실패)된 후에 반환됩니다.
func (d *Dispatcher) Dispatch(ctx context.Context, message Message, urls []string) []Result {
	if len(urls) == 0 {
		return nil
	}

	body, err := json.Marshal(message)
	if err != nil {
		results := make([]Result, len(urls))
		for i, url := range urls {
			results[i] = Result{URL: url, Err: apperrors.Wrap(err, apperrors.Internal, "웹훅 페이로드 생성에 실패했습니다")}
		}
		return results
	}

	results := make([]Result, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = Result{URL: url, Err: d.post(ctx, url, body)}
		}(i, url)
	}
	wg.Wait()

	return results
}

// post 지정된 URL로 페이로드를 POST합니다.
func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "웹훅 요청 생성에 실패했습니다")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "웹훅 요청 전송 중 에러가 발생했습니다")
	}
	defer resp.Body.Close()

	// Discord 웹훅은 성공 시 204 No Content를 반환합니다.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperrors.Newf(apperrors.ExecutionFailed, "웹훅 요청이 실패했습니다. 상태 코드: %d, 응답: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
