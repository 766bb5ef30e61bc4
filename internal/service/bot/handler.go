package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"
)

// handleMessage 수신된 하나의 메시지를 처리합니다.
//
// 관리자가 아닌 사용자의 메시지는 어떠한 응답도 없이 무시됩니다.
// 관리자의 잘못된 명령어 사용에는 사용법 안내 메시지로 응답합니다.
func (b *Bot) handleMessage(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message) {
	name, args, ok := parseCommand(message.Text)
	if !ok {
		return
	}

	// 관리자 확인: 권한이 없는 사용자의 명령어는 응답없이 무시한다.
	if message.From == nil || message.From.ID != b.adminUserID {
		applog.WithComponentAndFields(component, applog.Fields{
			"command": name,
			"user_id": userID(message),
		}).Debug("관리자가 아닌 사용자의 명령어를 무시합니다")
		return
	}

	switch name {
	case commandAddWebhook:
		b.handleAddWebhook(ctx, wg, message, args)

	case commandAddWebhookMobile:
		b.handleAddWebhookMobile(ctx, wg, message, args)

	case commandTest:
		b.handleTest(ctx, wg, message, args)

	case commandTestMobile:
		b.handleTestMobile(ctx, wg, message, args)
	}
}

// handleAddWebhook '!add_webhook <url> <region>' 명령어를 처리합니다.
func (b *Bot) handleAddWebhook(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, args []string) {
	if len(args) != 2 {
		b.reply(message.Chat.ID, messageUsageAddWebhook)
		return
	}

	b.addWebhook(ctx, wg, message, args[0], args[1])
}

// handleAddWebhookMobile '!add_webhook_mobile <url>' 명령어를 처리합니다.
func (b *Bot) handleAddWebhookMobile(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, args []string) {
	if len(args) != 1 {
		b.reply(message.Chat.ID, messageUsageAddWebhookMobile)
		return
	}
	if b.defaultBucket == "" {
		b.reply(message.Chat.ID, messageLegacyNotAvailable)
		return
	}

	b.addWebhook(ctx, wg, message, args[0], b.defaultBucket)
}

// addWebhook 웹훅 URL을 지정된 지역 버킷에 등록하고 결과를 보고합니다.
// 등록에 성공하면 명령어 메시지(웹훅 URL 노출)를 삭제하고, 확인 메시지를 잠시 표시한 후 삭제합니다.
func (b *Bot) addWebhook(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, webhookURL, bucket string) {
	if !b.knownBucket(bucket) {
		b.reply(message.Chat.ID, messageUnknownRegion)
		return
	}
	if !validWebhookURL(webhookURL) {
		b.reply(message.Chat.ID, messageInvalidWebhookURL)
		return
	}

	if err := b.registry.Append(bucket, webhookURL); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"bucket": bucket,
			"url":    applog.MaskSensitiveData(webhookURL),
			"error":  err,
		}).Error("웹훅 URL 등록에 실패했습니다")

		b.reply(message.Chat.ID, fmt.Sprintf("Failed to add webhook URL: %v", err))
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"bucket": bucket,
		"url":    applog.MaskSensitiveData(webhookURL),
	}).Info("웹훅 URL이 등록되었습니다")

	// 명령어 메시지에 웹훅 URL이 그대로 노출되어 있으므로 즉시 삭제한다.
	b.deleteMessage(message.Chat.ID, message.MessageID)
	b.replyEphemeral(ctx, wg, message.Chat.ID, messageWebhookAdded)
}

// handleTest '!test <region>' 명령어를 처리합니다.
func (b *Bot) handleTest(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, args []string) {
	if len(args) != 1 {
		b.reply(message.Chat.ID, messageUsageTest)
		return
	}
	if !b.knownBucket(args[0]) {
		b.reply(message.Chat.ID, messageUnknownRegion)
		return
	}

	b.testWebhooks(ctx, wg, message, args[0])
}

// handleTestMobile '!test_mobile' 명령어를 처리합니다.
func (b *Bot) handleTestMobile(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, args []string) {
	if len(args) != 0 {
		b.reply(message.Chat.ID, messageUsageTestMobile)
		return
	}
	if b.defaultBucket == "" {
		b.reply(message.Chat.ID, messageLegacyNotAvailable)
		return
	}

	b.testWebhooks(ctx, wg, message, b.defaultBucket)
}

// testWebhooks 가장 최근의 래플로 실제 알림과 동일한 테스트 메시지를 만들어
// 지정된 지역 버킷의 모든 웹훅으로 발송하고, 발송 결과를 채팅방에 보고합니다.
func (b *Bot) testWebhooks(ctx context.Context, wg *sync.WaitGroup, message *tgbotapi.Message, bucket string) {
	urls := b.registry.URLs(bucket)
	if len(urls) == 0 {
		b.reply(message.Chat.ID, messageNoWebhooks)
		return
	}

	record, err := b.source.FetchLatest(ctx)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"bucket": bucket,
			"error":  err,
		}).Error("테스트 발송용 래플 조회에 실패했습니다")

		b.reply(message.Chat.ID, messageTestFailed)
		return
	}

	results := b.dispatcher.Dispatch(ctx, b.formatter.BuildNotification(*record), urls)

	succeeded := 0
	for _, result := range results {
		if result.Err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"bucket": bucket,
				"url":    applog.MaskSensitiveData(result.URL),
				"error":  result.Err,
			}).Error("테스트 웹훅 발송에 실패했습니다")
			continue
		}
		succeeded++
	}

	b.deleteMessage(message.Chat.ID, message.MessageID)
	b.replyEphemeral(ctx, wg, message.Chat.ID, fmt.Sprintf("%s (%d/%d delivered)", messageTestSent, succeeded, len(results)))
}

// knownBucket 지정된 이름의 지역 버킷이 설정에 정의되어 있는지 확인합니다.
func (b *Bot) knownBucket(bucket string) bool {
	_, exists := b.buckets[bucket]
	return exists
}

// reply 채팅방에 메시지를 전송합니다. 전송된 메시지는 삭제되지 않고 유지됩니다.
func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("메시지 전송에 실패했습니다")
	}
}

// replyEphemeral 채팅방에 확인 메시지를 전송하고, 일정 시간이 지난 후 자동으로 삭제합니다.
func (b *Bot) replyEphemeral(ctx context.Context, wg *sync.WaitGroup, chatID int64, text string) {
	sent, err := b.client.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("확인 메시지 전송에 실패했습니다")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		select {
		case <-ctx.Done():
			// 서비스 종료 시에는 삭제를 수행하지 않는다.
		case <-time.After(confirmationVisibleFor):
			b.deleteMessage(chatID, sent.MessageID)
		}
	}()
}

// deleteMessage 채팅방의 메시지를 삭제합니다. 삭제 실패는 경고로만 기록됩니다.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.client.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
			"error":      err,
		}).Warn("메시지 삭제에 실패했습니다")
	}
}

// userID 메시지 발신자의 사용자 식별자를 반환합니다. 발신자 정보가 없으면 0을 반환합니다.
func userID(message *tgbotapi.Message) int64 {
	if message.From == nil {
		return 0
	}
	return message.From.ID
}
