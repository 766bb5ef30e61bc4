package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"

	"github.com/swiftraffles/raffle-notify-server/internal/service/raffle"
)

// Bot 텔레그램 봇 명령어를 수신하여 웹훅 등록과 테스트 발송을 수행하는 서비스입니다.
type Bot struct {
	botToken    string
	chatID      int64
	adminUserID int64

	// buckets 설정에 정의된 모든 지역 버킷의 이름 집합입니다.
	buckets map[string]struct{}

	// defaultBucket 레거시(mobile) 명령어가 대상으로 하는 지역 버킷의 이름입니다.
	// 와일드카드("*")가 부여된 버킷이 없으면 빈 문자열이며, 레거시 명령어는 거부됩니다.
	defaultBucket string

	client     client
	registry   WebhookRegistry
	source     RaffleSource
	formatter  *raffle.Formatter
	dispatcher Dispatcher

	// commandSemaphore 명령어 처리 고루틴의 동시 실행 수를 제한하는 세마포어입니다.
	commandSemaphore chan struct{}

	running   bool
	runningMu sync.Mutex
}

// NewService 새로운 Bot 서비스 인스턴스를 생성합니다.
// 텔레그램 봇 API와의 실제 연결은 Start 시점에 수립됩니다.
func NewService(cfg *config.AppConfig, registry WebhookRegistry, source RaffleSource, formatter *raffle.Formatter, dispatcher Dispatcher) *Bot {
	if registry == nil {
		panic("WebhookRegistry는 필수입니다")
	}
	if source == nil {
		panic("RaffleSource는 필수입니다")
	}
	if dispatcher == nil {
		panic("Dispatcher는 필수입니다")
	}

	buckets := make(map[string]struct{}, len(cfg.Regions.Buckets))
	defaultBucket := ""
	for name, locales := range cfg.Regions.Buckets {
		buckets[name] = struct{}{}

		for _, locale := range locales {
			if locale == config.WildcardLocale && defaultBucket == "" {
				defaultBucket = name
			}
		}
	}

	return &Bot{
		botToken:    cfg.Telegram.BotToken,
		chatID:      cfg.Telegram.ChatID,
		adminUserID: cfg.Admin.UserID,

		buckets:       buckets,
		defaultBucket: defaultBucket,

		registry:   registry,
		source:     source,
		formatter:  formatter,
		dispatcher: dispatcher,

		commandSemaphore: make(chan struct{}, maxConcurrentCommands),
	}
}

// Start 텔레그램 봇 API에 연결하고 명령어 수신 루프를 시작합니다.
func (b *Bot) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: Bot 서비스 초기화 프로세스를 시작합니다")

	if b.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("Bot 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	// 테스트에서 주입된 클라이언트가 없으면 실제 텔레그램 봇 API에 연결한다.
	if b.client == nil {
		api, err := tgbotapi.NewBotAPI(b.botToken)
		if err != nil {
			serviceStopWG.Done()
			return apperrors.Wrap(err, apperrors.Unavailable, "텔레그램 봇 API 연결에 실패했습니다")
		}
		b.client = &tgClient{BotAPI: api}
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds
	updateC := b.client.GetUpdatesChan(updateConfig)

	b.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"bot_username": b.client.GetSelf().UserName,
		"chat_id":      b.chatID,
	}).Info("서비스 시작 완료: Bot 서비스가 정상적으로 초기화되었습니다")

	go b.run(serviceStopCtx, serviceStopWG, updateC)

	return nil
}

// run 명령어 수신 루프를 실행합니다. 서비스 종료 신호가 수신되면
// 실행 중인 모든 명령어 처리가 완료될 때까지 대기한 후 반환됩니다.
func (b *Bot) run(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup, updateC tgbotapi.UpdatesChannel) {
	defer serviceStopWG.Done()

	var handlerWG sync.WaitGroup

	defer func() {
		applog.WithComponent(component).Info("종료 절차 진입: Bot 서비스 중지 시그널을 수신했습니다")

		b.client.StopReceivingUpdates()
		handlerWG.Wait()

		b.runningMu.Lock()
		b.running = false
		b.runningMu.Unlock()

		applog.WithComponent(component).Info("Bot 서비스 종료 완료: 모든 리소스가 정리되었습니다")
	}()

	for {
		select {
		case update, ok := <-updateC:
			if !ok {
				applog.WithComponent(component).Error("Long Polling 채널이 종료되어 명령어 수신 루프를 종료합니다")
				return
			}

			// 텍스트 메시지만 처리
			if update.Message == nil {
				continue
			}

			// 허용된 채팅방에서 온 메시지만 처리
			if update.Message.Chat.ID != b.chatID {
				continue
			}

			// 명령어 처리가 오래 걸릴 수 있으므로 수신 루프를 차단하지 않도록 별도 고루틴으로 실행한다.
			// 세마포어가 꽉 찬 상태에서는 요청을 드롭하여 고루틴 누수를 방지한다.
			select {
			case b.commandSemaphore <- struct{}{}:
				handlerWG.Add(1)
				go func(message *tgbotapi.Message) {
					defer handlerWG.Done()
					defer func() { <-b.commandSemaphore }()

					b.handleMessage(serviceStopCtx, &handlerWG, message)
				}(update.Message)

			case <-serviceStopCtx.Done():
				return

			default:
				applog.WithComponentAndFields(component, applog.Fields{
					"active_commands": len(b.commandSemaphore),
				}).Warn("명령어 처리 용량 초과로 요청을 드롭했습니다")
			}

		case <-serviceStopCtx.Done():
			return
		}
	}
}
