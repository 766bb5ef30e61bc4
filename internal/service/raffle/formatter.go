package raffle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

const (
	// embedColor 임베드 카드 좌측에 표시되는 색상입니다.
	embedColor = 0x68CD89

	// stockXBaseURL 시장 가격 조회 링크의 기본 주소입니다.
	stockXBaseURL = "https://stockx.com/"

	// notesMinLength Notes 필드가 표시되기 위한 원본 비고 문자열의 최소 길이입니다.
	// 이보다 짧은 비고는 의미있는 정보가 아니라고 보고 표시하지 않습니다.
	notesMinLength = 23
)

// deliveryShipping / deliveryInStorePickup 배송 방식의 표시 라벨입니다.
const (
	deliveryShipping      = "Shipping"
	deliveryInStorePickup = "In Store Pickup"
)

// notesBoilerplateReplacer 비고 문자열에서 제거되는 상용구 목록입니다.
var notesBoilerplateReplacer = strings.NewReplacer(
	" | Assume random end time.", "",
	" | Heads Up", "",
	"Heads up | ", "",
)

// Formatter 래플 레코드를 웹훅 알림 메시지로 변환합니다.
// 변환 중에는 어떠한 I/O도 수행하지 않습니다.
type Formatter struct {
	botName   string
	avatarURL string

	// now 임베드 타임스탬프 생성에 사용되는 현재 시각 함수입니다. (테스트에서 고정 시각 주입용)
	now func() time.Time
}

// NewFormatter 알림에 표시될 봇 이름과 아바타 주소로 새로운 Formatter를 생성합니다.
func NewFormatter(botName, avatarURL string) *Formatter {
	return &Formatter{
		botName:   botName,
		avatarURL: avatarURL,

		now: time.Now,
	}
}

// BuildNotification 래플 레코드로부터 웹훅 알림 메시지를 생성합니다.
func (f *Formatter) BuildNotification(record Record) webhook.Message {
	store := record.Retailer.Name

	fields := []webhook.EmbedField{
		{Name: "Region", Value: strings.TrimSpace(FlagEmoji(record.Locale) + " " + record.Locale), Inline: true},
		{Name: "Type", Value: record.Type, Inline: true},
		{Name: "Store", Value: store, Inline: true},
		{Name: "Open", Value: timestampOr(record.StartDate, "Now"), Inline: true},
		{Name: "Close", Value: timestampOr(record.EndDate, "TBA"), Inline: true},
		{Name: "Delivery", Value: deliveryValue(deliveryMethod(record.HasPostage)), Inline: true},
		{Name: "Entry:", Value: fmt.Sprintf("[Enter at %s](%s)", store, record.URL), Inline: true},
		{Name: "Value:", Value: fmt.Sprintf(":chart_with_upwards_trend: [StockX](%s)", stockXLink(record.Product.StockXSlug)), Inline: true},
	}

	// 사전 승인이 필요한 래플에만 표시 (불필요한 "None" 필드를 만들지 않음)
	if record.Retailer.PreAuth {
		fields = append(fields, webhook.EmbedField{Name: "Pre-Auth:", Value: ":credit_card:", Inline: true})
	}

	if notes, ok := notesValue(record.Notes); ok {
		fields = append(fields, webhook.EmbedField{Name: "Notes:", Value: notes, Inline: false})
	}

	embed := webhook.Embed{
		Title:       record.Product.Name,
		URL:         record.URL,
		Description: fmt.Sprintf("A new raffle for %s is live!", record.Product.Name),
		Color:       embedColor,
		Timestamp:   f.now().UTC().Format(time.RFC3339),
		Thumbnail:   &webhook.EmbedThumbnail{URL: record.Product.ImageURL},
		Fields:      fields,
		Footer:      &webhook.EmbedFooter{Text: f.botName, IconURL: f.avatarURL},
	}

	return webhook.Message{
		Username:  f.botName,
		AvatarURL: f.avatarURL,
		Embeds:    []webhook.Embed{embed},
	}
}

// timestampOr 시각이 존재하면 수신 측이 시청자의 시간대로 렌더링하는
// 타임스탬프 토큰(<t:unix:f>)을, 없으면 지정된 대체 문자열을 반환합니다.
func timestampOr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

// deliveryMethod 배송 지원 여부에 해당하는 표시 라벨을 반환합니다.
func deliveryMethod(hasPostage bool) string {
	if hasPostage {
		return deliveryShipping
	}
	return deliveryInStorePickup
}

// deliveryValue 배송 방식 라벨 앞에 해당하는 이모지를 붙여 반환합니다.
func deliveryValue(method string) string {
	switch method {
	case deliveryShipping:
		return ":package: " + method
	case deliveryInStorePickup:
		return ":door: " + method
	default:
		return ":white_check_mark: " + method
	}
}

// stockXLink 상품 슬러그로부터 시장 가격 조회 링크를 생성합니다.
// 슬러그에 포함된 모든 공백 문자는 제거됩니다.
func stockXLink(slug string) string {
	return stockXBaseURL + strings.Join(strings.Fields(slug), "")
}

// notesValue 비고 문자열에서 상용구를 제거한 표시용 값을 반환합니다.
// 원본 문자열이 충분히 길지 않으면 두 번째 반환값이 false입니다.
// 길이는 바이트가 아닌 문자 수 기준이므로 비ASCII 비고도 동일하게 판정됩니다.
func notesValue(notes string) (string, bool) {
	if utf8.RuneCountInString(notes) <= notesMinLength {
		return "", false
	}
	return notesBoilerplateReplacer.Replace(notes), true
}
