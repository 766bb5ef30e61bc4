// Package raffle 업스트림 래플 목록 API의 데이터 모델과 조회, 알림 메시지 구성을 담당합니다.
package raffle

import (
	"encoding/json"
	"time"
)

// Record 업스트림 API가 반환하는 하나의 래플 항목입니다.
//
// 이 구조체는 외부 시스템이 소유한 데이터의 소비용 뷰이며,
// 알림 구성에 필요한 필드만 정의합니다. ID는 피드 내에서 유일하다고 신뢰합니다.
type Record struct {
	// ID 래플의 고유 식별자입니다. 업스트림이 숫자/문자열을 혼용하므로 json.Number로 수신합니다.
	ID json.Number `json:"id"`

	// Locale 래플이 진행되는 지역의 표시 이름입니다. (예: "United States", "Europe", "Worldwide")
	Locale string `json:"locale"`

	// Type 래플 진행 방식의 라벨입니다. (예: "Online Raffle", "In Store Raffle")
	Type string `json:"type"`

	// StartDate / EndDate 래플 시작/종료 시각입니다. 업스트림에서 null일 수 있습니다.
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	// HasPostage 당첨 상품의 배송 지원 여부입니다. false이면 매장 수령입니다.
	HasPostage bool `json:"hasPostage"`

	// URL 래플 응모 페이지의 주소입니다.
	URL string `json:"url"`

	// Notes 업스트림이 부여한 자유 형식의 비고 문자열입니다. 비어있을 수 있습니다.
	Notes string `json:"notes"`

	Product  Product  `json:"product"`
	Retailer Retailer `json:"retailer"`
}

// Product 래플 대상 상품 정보입니다.
type Product struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`

	// StockXSlug 시장 가격 조회 링크를 구성하는 데 사용되는 상품 슬러그입니다.
	StockXSlug string `json:"stockxSlug"`
}

// Retailer 래플을 진행하는 판매처 정보입니다.
type Retailer struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`

	// PreAuth 응모 시 결제 수단 사전 승인(Pre-Authorization)이 필요한지 여부입니다.
	PreAuth bool `json:"preAuth"`
}
