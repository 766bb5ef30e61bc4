package bot

import (
	"net/url"
	"strings"
)

// 봇 명령어 목록입니다.
//
// 지역 버킷을 인자로 받는 명령어와, 기본(레거시) 지역 버킷에 고정된
// mobile 계열 명령어를 모두 지원합니다.
const (
	// commandAddWebhook 지정된 지역 버킷에 웹훅 URL을 등록합니다. (사용법: !add_webhook <url> <region>)
	commandAddWebhook = "!add_webhook"

	// commandAddWebhookMobile 기본 지역 버킷에 웹훅 URL을 등록합니다. (사용법: !add_webhook_mobile <url>)
	commandAddWebhookMobile = "!add_webhook_mobile"

	// commandTest 지정된 지역 버킷의 모든 웹훅으로 테스트 알림을 발송합니다. (사용법: !test <region>)
	commandTest = "!test"

	// commandTestMobile 기본 지역 버킷의 모든 웹훅으로 테스트 알림을 발송합니다. (사용법: !test_mobile)
	commandTestMobile = "!test_mobile"
)

// 사용자에게 표시되는 명령어 처리 결과 메시지입니다.
const (
	messageWebhookAdded       = "Webhook URL has been added."
	messageTestSent           = "Test webhook sent."
	messageTestFailed         = "Test failed."
	messageNoWebhooks         = "No webhook URLs are registered for this region."
	messageLegacyNotAvailable = "Legacy webhook registration is not configured."

	messageUsageAddWebhook       = "Invalid command usage. Please provide a webhook URL and a region."
	messageUsageAddWebhookMobile = "Invalid command usage. Please provide a single webhook URL."
	messageUsageTest             = "Invalid command usage. Please provide a region."
	messageUsageTestMobile       = "Invalid command usage. This command takes no arguments."
	messageUnknownRegion         = "Unknown region. Please provide a configured region."
	messageInvalidWebhookURL     = "Invalid webhook URL. Please provide an http(s) URL."
)

// parseCommand 메시지 텍스트를 명령어 이름과 인자 목록으로 분리합니다.
// 명령어가 아닌 텍스트이면 두 번째 반환값이 false입니다.
func parseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return "", nil, false
	}

	return fields[0], fields[1:], true
}

// validWebhookURL 지정된 문자열이 유효한 http(s) URL인지 확인합니다.
func validWebhookURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
