package raffle

import (
	"strings"

	"github.com/biter777/countries"
)

// flagOverrides ISO 국가 코드로 변환할 수 없는 특수 Locale의 이모지 매핑입니다.
var flagOverrides = map[string]string{
	"Worldwide": ":globe_with_meridians:",
	"Europe":    ":flag_eu:",
}

// FlagEmoji 래플 Locale 표시 이름에 해당하는 국기 이모지 단축 코드를 반환합니다.
// 국가 코드를 결정할 수 없는 Locale에 대해서는 빈 문자열을 반환합니다.
func FlagEmoji(locale string) string {
	if emoji, exists := flagOverrides[locale]; exists {
		return emoji
	}

	country := countries.ByName(locale)
	if !country.IsValid() {
		return ""
	}

	return ":flag_" + strings.ToLower(country.Alpha2()) + ":"
}
