package raffle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
)

const (
	// userAgent 업스트림 API가 기대하는 모바일 클라이언트의 User-Agent 값입니다.
	userAgent = "SoleRetriever/1 CFNetwork/1406.0.4 Darwin/22.4.0"

	// recordsPath 응답 봉투(envelope)에서 래플 목록 배열이 위치하는 경로입니다.
	recordsPath = "data.data"
)

// Client 업스트림 래플 목록 API를 호출하여 최근 래플 목록을 조회합니다.
type Client struct {
	fetcher Fetcher

	url          string
	authToken    string
	refreshToken string
	fetchLimit   int
}

// NewClient 업스트림 설정으로부터 새로운 Client를 생성합니다.
// fetcher가 nil이면 기본 HTTPFetcher가 사용됩니다.
func NewClient(cfg *config.UpstreamConfig, fetcher Fetcher) *Client {
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}

	return &Client{
		fetcher:      fetcher,
		url:          cfg.URL,
		authToken:    cfg.AuthToken,
		refreshToken: cfg.RefreshToken,
		fetchLimit:   cfg.FetchLimit,
	}
}

// Fetch 최근 래플 목록을 최신순으로 조회합니다.
// 네트워크 에러, 비정상 상태 코드, 예상과 다른 응답 구조는 모두 에러로 반환됩니다.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	reqBody, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"limit":  c.fetchLimit,
			"offset": 0,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "래플 목록 API 요청 본문 생성에 실패했습니다")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("래플 목록 API 요청 생성에 실패했습니다 (URL: %s)", c.url))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("x-supabase-auth", c.authToken)
	req.Header.Set("x-supabase-refresh", c.refreshToken)

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ExecutionFailed, "래플 목록 API 요청 전송 중 에러가 발생했습니다")
	}
	defer resp.Body.Close() // 응답을 받은 즉시 defer 설정하여 메모리 누수 방지

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ExecutionFailed, fmt.Sprintf("래플 목록 API 요청이 실패했습니다. 상태 코드: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ExecutionFailed, "래플 목록 API 응답 읽기에 실패했습니다")
	}

	return parseRecords(body)
}

// FetchLatest 가장 최근의 래플 1건을 조회합니다. 조회된 래플이 없으면 NotFound 에러를 반환합니다.
func (c *Client) FetchLatest(ctx context.Context) (*Record, error) {
	records, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.NotFound, "조회된 래플이 없습니다")
	}

	return &records[0], nil
}

// parseRecords 응답 봉투에서 래플 목록 배열을 추출하여 디코딩합니다.
func parseRecords(body []byte) ([]Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.New(apperrors.ParsingFailed, "래플 목록 API 응답이 유효한 JSON이 아닙니다")
	}

	result := gjson.GetBytes(body, recordsPath)
	if !result.Exists() || !result.IsArray() {
		return nil, apperrors.New(apperrors.ParsingFailed, fmt.Sprintf("래플 목록 API 응답에서 래플 배열(%s)을 찾을 수 없습니다", recordsPath))
	}

	var records []Record
	if err := json.Unmarshal([]byte(result.Raw), &records); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "래플 목록 데이터의 JSON 변환이 실패하였습니다")
	}

	return records, nil
}
