package raffle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

// sampleRecord returns a fully populated record for formatter tests.
func sampleRecord() Record {
	endDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return Record{
		ID:         json.Number("42"),
		Locale:     "United States",
		Type:       "Online Raffle",
		StartDate:  nil,
		EndDate:    &endDate,
		HasPostage: true,
		URL:        "https://example.com/raffle/42",
		Notes:      "Heads up | Limited to 1 pair",
		Product: Product{
			Name:       "Air Jordan 1 Retro High OG",
			ImageURL:   "https://example.com/image.png",
			StockXSlug: "air-jordan-1-retro-high-og",
		},
		Retailer: Retailer{
			Name:     "Example Store",
			ImageURL: "https://example.com/store.png",
			PreAuth:  false,
		},
	}
}

// fieldByName returns the value of the embed field with the given name.
func fieldByName(t *testing.T, fields []webhook.EmbedField, name string) (string, bool) {
	t.Helper()

	for _, field := range fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

func TestFormatter_BuildNotification(t *testing.T) {
	formatter := NewFormatter("Swift Raffles", "https://example.com/avatar.png")
	formatter.now = func() time.Time {
		return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	}

	t.Run("기본 임베드 구성", func(t *testing.T) {
		message := formatter.BuildNotification(sampleRecord())

		assert.Equal(t, "Swift Raffles", message.Username)
		assert.Equal(t, "https://example.com/avatar.png", message.AvatarURL)

		require.Len(t, message.Embeds, 1)
		embed := message.Embeds[0]

		assert.Equal(t, "Air Jordan 1 Retro High OG", embed.Title)
		assert.Equal(t, "https://example.com/raffle/42", embed.URL)
		assert.Equal(t, "A new raffle for Air Jordan 1 Retro High OG is live!", embed.Description)
		assert.Equal(t, 0x68CD89, embed.Color)

		require.NotNil(t, embed.Thumbnail)
		assert.Equal(t, "https://example.com/image.png", embed.Thumbnail.URL)

		require.NotNil(t, embed.Footer)
		assert.Equal(t, "Swift Raffles", embed.Footer.Text)
		assert.Equal(t, "https://example.com/avatar.png", embed.Footer.IconURL)

		assert.Equal(t, "2024-02-01T12:00:00Z", embed.Timestamp)
	})

	t.Run("시작일이 없으면 Open은 Now", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		open, found := fieldByName(t, embed.Fields, "Open")
		require.True(t, found)
		assert.Equal(t, "Now", open)
	})

	t.Run("종료일은 타임스탬프 토큰으로 렌더링", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		closeValue, found := fieldByName(t, embed.Fields, "Close")
		require.True(t, found)
		assert.Equal(t, "<t:1704067200:f>", closeValue)
	})

	t.Run("종료일이 없으면 Close는 TBA", func(t *testing.T) {
		record := sampleRecord()
		record.EndDate = nil

		embed := formatter.BuildNotification(record).Embeds[0]

		closeValue, found := fieldByName(t, embed.Fields, "Close")
		require.True(t, found)
		assert.Equal(t, "TBA", closeValue)
	})

	t.Run("배송 방식 표시", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		delivery, found := fieldByName(t, embed.Fields, "Delivery")
		require.True(t, found)
		assert.Equal(t, ":package: Shipping", delivery)

		record := sampleRecord()
		record.HasPostage = false

		embed = formatter.BuildNotification(record).Embeds[0]

		delivery, found = fieldByName(t, embed.Fields, "Delivery")
		require.True(t, found)
		assert.Equal(t, ":door: In Store Pickup", delivery)
	})

	t.Run("지역 필드에 국기 이모지 포함", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		region, found := fieldByName(t, embed.Fields, "Region")
		require.True(t, found)
		assert.Equal(t, ":flag_us: United States", region)
	})

	t.Run("비고 필드의 상용구 제거", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		notes, found := fieldByName(t, embed.Fields, "Notes:")
		require.True(t, found)
		assert.Equal(t, "Limited to 1 pair", notes)
	})

	t.Run("짧은 비고는 표시되지 않음", func(t *testing.T) {
		record := sampleRecord()
		record.Notes = "None"

		embed := formatter.BuildNotification(record).Embeds[0]

		_, found := fieldByName(t, embed.Fields, "Notes:")
		assert.False(t, found)
	})

	t.Run("비고 길이는 바이트가 아닌 문자 수로 판정", func(t *testing.T) {
		record := sampleRecord()
		record.Notes = "온라인 응모는 공식 앱에서만 가능" // 18자, UTF-8로는 23바이트 초과

		embed := formatter.BuildNotification(record).Embeds[0]

		_, found := fieldByName(t, embed.Fields, "Notes:")
		assert.False(t, found)

		record.Notes = "온라인 응모는 공식 앱에서만 가능하며 당첨자는 개별 통보됩니다"
		embed = formatter.BuildNotification(record).Embeds[0]

		_, found = fieldByName(t, embed.Fields, "Notes:")
		assert.True(t, found)
	})

	t.Run("사전 승인 필드는 필요한 경우에만 표시", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		_, found := fieldByName(t, embed.Fields, "Pre-Auth:")
		assert.False(t, found)

		record := sampleRecord()
		record.Retailer.PreAuth = true

		embed = formatter.BuildNotification(record).Embeds[0]

		preAuth, found := fieldByName(t, embed.Fields, "Pre-Auth:")
		require.True(t, found)
		assert.Equal(t, ":credit_card:", preAuth)
	})

	t.Run("StockX 링크의 공백 제거", func(t *testing.T) {
		record := sampleRecord()
		record.Product.StockXSlug = "air jordan 1\tretro"

		embed := formatter.BuildNotification(record).Embeds[0]

		value, found := fieldByName(t, embed.Fields, "Value:")
		require.True(t, found)
		assert.Equal(t, ":chart_with_upwards_trend: [StockX](https://stockx.com/airjordan1retro)", value)
	})

	t.Run("응모 링크 구성", func(t *testing.T) {
		embed := formatter.BuildNotification(sampleRecord()).Embeds[0]

		entry, found := fieldByName(t, embed.Fields, "Entry:")
		require.True(t, found)
		assert.Equal(t, "[Enter at Example Store](https://example.com/raffle/42)", entry)
	})

	t.Run("동일 레코드에 대한 변환은 항상 동일", func(t *testing.T) {
		first := formatter.BuildNotification(sampleRecord())
		second := formatter.BuildNotification(sampleRecord())

		assert.Equal(t, first, second)
	})
}

func TestFlagEmoji(t *testing.T) {
	tests := []struct {
		name     string
		locale   string
		expected string
	}{
		{"Worldwide 오버라이드", "Worldwide", ":globe_with_meridians:"},
		{"Europe 오버라이드", "Europe", ":flag_eu:"},
		{"국가명 변환", "United Kingdom", ":flag_gb:"},
		{"알 수 없는 Locale", "Atlantis", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FlagEmoji(tc.locale))
		})
	}
}
