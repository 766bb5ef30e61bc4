package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes the given JSON document to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	return filePath
}

const validConfigJSON = `{
	"admin": {"user_id": 2000},
	"telegram": {"bot_token": "123456:test-token", "chat_id": 1000},
	"upstream": {
		"url": "https://upstream.example.com/raffles",
		"auth_token": "auth-token",
		"refresh_token": "refresh-token"
	}
}`

func TestLoadWithFile(t *testing.T) {
	t.Run("유효한 설정 파일 로드", func(t *testing.T) {
		appConfig, err := LoadWithFile(writeConfigFile(t, validConfigJSON))
		require.NoError(t, err)

		assert.Equal(t, int64(2000), appConfig.Admin.UserID)
		assert.Equal(t, "123456:test-token", appConfig.Telegram.BotToken)
		assert.Equal(t, int64(1000), appConfig.Telegram.ChatID)
		assert.Equal(t, "https://upstream.example.com/raffles", appConfig.Upstream.URL)
	})

	t.Run("생략된 항목은 기본값으로 채워짐", func(t *testing.T) {
		appConfig, err := LoadWithFile(writeConfigFile(t, validConfigJSON))
		require.NoError(t, err)

		assert.Equal(t, 16, appConfig.Upstream.FetchLimit)
		assert.Equal(t, 60*time.Second, appConfig.Poll.IntervalDuration())
		assert.Equal(t, 4096, appConfig.Poll.SeenCapacity)
		assert.Equal(t, "Swift Raffles", appConfig.Notification.BotName)
		assert.Equal(t, "webhooks.json", appConfig.Notification.WebhookFile)
		assert.Equal(t, []string{"US", "EU", "WW"}, appConfig.Regions.Allow)
		assert.True(t, appConfig.API.Enabled)
		assert.Equal(t, 8080, appConfig.API.ListenPort)
	})

	t.Run("환경 변수가 설정 파일보다 우선", func(t *testing.T) {
		t.Setenv("RAFFLE_UPSTREAM__AUTH_TOKEN", "env-auth-token")
		t.Setenv("RAFFLE_POLL__INTERVAL", "2m")

		appConfig, err := LoadWithFile(writeConfigFile(t, validConfigJSON))
		require.NoError(t, err)

		assert.Equal(t, "env-auth-token", appConfig.Upstream.AuthToken)
		assert.Equal(t, 2*time.Minute, appConfig.Poll.IntervalDuration())
	})

	t.Run("설정 파일이 없으면 에러", func(t *testing.T) {
		_, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("구조체에 없는 필드가 있으면 에러", func(t *testing.T) {
		_, err := LoadWithFile(writeConfigFile(t, `{
			"admin": {"user_id": 2000},
			"telegram": {"bot_token": "token", "chat_id": 1000},
			"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"},
			"unknown_field": true
		}`))
		assert.Error(t, err)
	})

	t.Run("필수 항목 누락 시 에러", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{
				"봇 토큰 누락",
				`{
					"admin": {"user_id": 2000},
					"telegram": {"chat_id": 1000},
					"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"}
				}`,
			},
			{
				"관리자 누락",
				`{
					"telegram": {"bot_token": "token", "chat_id": 1000},
					"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"}
				}`,
			},
			{
				"업스트림 URL 누락",
				`{
					"admin": {"user_id": 2000},
					"telegram": {"bot_token": "token", "chat_id": 1000},
					"upstream": {"auth_token": "a", "refresh_token": "r"}
				}`,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := LoadWithFile(writeConfigFile(t, tc.content))
				assert.Error(t, err)
			})
		}
	})

	t.Run("잘못된 확인 주기는 에러", func(t *testing.T) {
		_, err := LoadWithFile(writeConfigFile(t, `{
			"admin": {"user_id": 2000},
			"telegram": {"bot_token": "token", "chat_id": 1000},
			"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"},
			"poll": {"interval": "not-a-duration"}
		}`))
		assert.Error(t, err)
	})

	t.Run("1초 미만의 확인 주기는 에러", func(t *testing.T) {
		_, err := LoadWithFile(writeConfigFile(t, `{
			"admin": {"user_id": 2000},
			"telegram": {"bot_token": "token", "chat_id": 1000},
			"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"},
			"poll": {"interval": "500ms"}
		}`))
		assert.Error(t, err)
	})

	t.Run("허용 목록이 정의되지 않은 버킷을 참조하면 에러", func(t *testing.T) {
		_, err := LoadWithFile(writeConfigFile(t, `{
			"admin": {"user_id": 2000},
			"telegram": {"bot_token": "token", "chat_id": 1000},
			"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"},
			"regions": {
				"allow": ["US", "KR"],
				"buckets": {"US": ["United States"]}
			}
		}`))
		assert.Error(t, err)
	})

	t.Run("Locale 목록이 빈 버킷은 에러", func(t *testing.T) {
		_, err := LoadWithFile(writeConfigFile(t, `{
			"admin": {"user_id": 2000},
			"telegram": {"bot_token": "token", "chat_id": 1000},
			"upstream": {"url": "https://example.com", "auth_token": "a", "refresh_token": "r"},
			"regions": {
				"allow": ["US"],
				"buckets": {"US": []}
			}
		}`))
		assert.Error(t, err)
	})
}
