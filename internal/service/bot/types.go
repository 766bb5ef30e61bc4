// Package bot 텔레그램 봇 명령어를 통한 웹훅 등록과 테스트 발송을 처리하는 서비스입니다.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/swiftraffles/raffle-notify-server/internal/service/raffle"
	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

// component Bot 서비스의 로깅용 컴포넌트 이름
const component = "bot.service"

const (
	// confirmationVisibleFor 명령어 처리 확인 메시지가 채팅방에 표시되는 시간입니다.
	// 이 시간이 지나면 확인 메시지는 자동으로 삭제됩니다.
	confirmationVisibleFor = 5 * time.Second

	// updateTimeoutSeconds Long Polling 요청의 타임아웃(초)입니다.
	updateTimeoutSeconds = 60

	// maxConcurrentCommands 동시에 처리 가능한 명령어의 최대 개수입니다.
	maxConcurrentCommands = 8
)

// client 텔레그램 봇 API와의 통신을 추상화한 인터페이스입니다.
type client interface {
	// 봇 정보 조회
	GetSelf() tgbotapi.User

	// 메시지 송수신
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

	// 리소스 정리
	StopReceivingUpdates()
}

// tgClient tgbotapi.BotAPI를 래핑하여 client 인터페이스를 구현하는 구조체입니다.
type tgClient struct {
	*tgbotapi.BotAPI
}

// GetSelf 현재 봇의 사용자 정보를 반환합니다.
func (c *tgClient) GetSelf() tgbotapi.User {
	return c.Self
}

// RaffleSource 업스트림에서 가장 최근의 래플을 조회하는 인터페이스입니다.
type RaffleSource interface {
	FetchLatest(ctx context.Context) (*raffle.Record, error)
}

// Dispatcher 웹훅 메시지를 여러 URL로 발송하는 인터페이스입니다.
type Dispatcher interface {
	Dispatch(ctx context.Context, message webhook.Message, urls []string) []webhook.Result
}

// WebhookRegistry 웹훅 URL의 등록과 조회를 담당하는 인터페이스입니다.
type WebhookRegistry interface {
	Append(bucket, url string) error
	URLs(bucket string) []string
}
