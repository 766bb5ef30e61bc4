// Package poller 업스트림 래플 목록을 주기적으로 확인하여 새로운 래플을 웹훅으로 알리는 서비스입니다.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"

	"github.com/swiftraffles/raffle-notify-server/internal/service/raffle"
	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

// component Poller 서비스의 로깅용 컴포넌트 이름
const component = "poller.service"

// RaffleSource 업스트림에서 최근 래플 목록을 조회하는 인터페이스입니다.
type RaffleSource interface {
	Fetch(ctx context.Context) ([]raffle.Record, error)
}

// Dispatcher 웹훅 메시지를 여러 URL로 발송하는 인터페이스입니다.
type Dispatcher interface {
	Dispatch(ctx context.Context, message webhook.Message, urls []string) []webhook.Result
}

// WebhookDirectory 지역 버킷에 등록된 웹훅 URL 목록을 조회하는 인터페이스입니다.
type WebhookDirectory interface {
	URLs(bucket string) []string
}

// CycleStatus 가장 최근에 완료된 확인 주기의 결과 요약입니다.
type CycleStatus struct {
	// LastRun 마지막 확인 주기가 완료된 시각입니다. 아직 실행 전이면 영값입니다.
	LastRun time.Time `json:"last_run"`

	// Fetched 마지막 주기에 업스트림에서 조회된 래플의 개수입니다.
	Fetched int `json:"fetched"`

	// Notified 마지막 주기에 웹훅 알림이 발송된 래플의 개수입니다.
	Notified int `json:"notified"`

	// LastError 마지막 주기에서 발생한 에러 메시지입니다. 정상 완료 시 빈 문자열입니다.
	LastError string `json:"last_error,omitempty"`
}

// Poller 래플 목록을 주기적으로 확인하고 새로운 래플을 웹훅으로 알리는 서비스입니다.
//
// 확인 주기는 Cron 엔진의 SkipIfStillRunning 체인으로 보호되므로,
// 이전 주기가 끝나지 않은 상태에서 다음 주기가 겹쳐 실행되는 일은 없습니다.
type Poller struct {
	interval time.Duration
	allow    map[string]struct{}

	source     RaffleSource
	seen       *raffle.SeenStore
	resolver   *raffle.RegionResolver
	formatter  *raffle.Formatter
	dispatcher Dispatcher
	directory  WebhookDirectory

	cron *cron.Cron

	statusMu sync.RWMutex
	status   CycleStatus

	running   bool
	runningMu sync.Mutex
}

// NewService 새로운 Poller 서비스 인스턴스를 생성합니다.
func NewService(
	cfg *config.AppConfig,
	source RaffleSource,
	seen *raffle.SeenStore,
	resolver *raffle.RegionResolver,
	formatter *raffle.Formatter,
	dispatcher Dispatcher,
	directory WebhookDirectory,
) *Poller {
	if source == nil {
		panic("RaffleSource는 필수입니다")
	}
	if dispatcher == nil {
		panic("Dispatcher는 필수입니다")
	}
	if directory == nil {
		panic("WebhookDirectory는 필수입니다")
	}

	allow := make(map[string]struct{}, len(cfg.Regions.Allow))
	for _, bucket := range cfg.Regions.Allow {
		allow[bucket] = struct{}{}
	}

	return &Poller{
		interval: cfg.Poll.IntervalDuration(),
		allow:    allow,

		source:     source,
		seen:       seen,
		resolver:   resolver,
		formatter:  formatter,
		dispatcher: dispatcher,
		directory:  directory,
	}
}

// Start 서비스 시작 시점의 래플 목록으로 저장소를 초기화한 후, 주기적인 확인 작업을 시작합니다.
//
// 초기화 조회가 실패하더라도 서비스는 시작됩니다. 이 경우 시작 시점에 이미 존재하던
// 래플도 다음 주기에 새로운 래플로 처리됩니다.
func (p *Poller) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: Poller 서비스 초기화 프로세스를 시작합니다")

	if p.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("Poller 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	// 1. 시작 시점에 존재하던 래플에 대한 소급 알림 방지
	p.seedSeenStore(serviceStopCtx)

	// 2. Cron 엔진 초기화
	// - Recover: Panic 발생 시 복구
	// - SkipIfStillRunning: 이전 확인 주기가 끝나지 않았으면 다음 주기를 건너뜀
	p.cron = cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(applog.StandardLogger())),
		cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(applog.StandardLogger())),
			cron.SkipIfStillRunning(cron.VerbosePrintfLogger(applog.StandardLogger())),
		),
	)

	// 3. 확인 작업 등록 및 시작
	if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.checkRaffles(serviceStopCtx)
	}); err != nil {
		serviceStopWG.Done()
		p.cron = nil
		return err
	}

	p.cron.Start()
	p.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"interval":     p.interval.String(),
		"seeded_count": p.seen.Len(),
	}).Info("서비스 시작 완료: Poller 서비스가 정상적으로 초기화되었습니다")

	// 4. 종료 신호 대기 (고루틴)
	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		p.Stop()
	}()

	return nil
}

// Stop 실행 중인 확인 작업을 안전하게 중지합니다.
func (p *Poller) Stop() {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return
	}

	applog.WithComponent(component).Info("종료 절차 진입: Poller 서비스 중지 시그널을 수신했습니다")

	// Cron 엔진 중지 및 실행 중인 확인 주기 완료 대기
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}

	p.cron = nil
	p.running = false

	applog.WithComponent(component).Info("Poller 서비스 종료 완료: 모든 리소스가 정리되었습니다")
}

// Status 가장 최근에 완료된 확인 주기의 결과 요약을 반환합니다.
func (p *Poller) Status() CycleStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	return p.status
}

// SeenCount 현재까지 처리된 것으로 기록된 래플 ID의 개수를 반환합니다.
func (p *Poller) SeenCount() int {
	return p.seen.Len()
}

// seedSeenStore 현재 업스트림에 존재하는 모든 래플을 이미 처리된 것으로 기록합니다.
func (p *Poller) seedSeenStore(ctx context.Context) {
	records, err := p.source.Fetch(ctx)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("초기 래플 목록 조회에 실패했습니다. 빈 상태로 시작합니다")
		return
	}

	seeded := p.seen.SeedFrom(records)

	applog.WithComponentAndFields(component, applog.Fields{
		"fetched_count": len(records),
		"seeded_count":  seeded,
	}).Info("시작 시점의 래플 목록으로 처리 기록을 초기화했습니다")
}

// checkRaffles 하나의 확인 주기를 수행합니다.
//
// 업스트림 조회 실패는 해당 주기를 빈 주기로 처리하며(서비스는 계속됨),
// 개별 래플의 처리 실패는 같은 주기 내 다른 래플의 처리에 영향을 주지 않습니다.
func (p *Poller) checkRaffles(ctx context.Context) {
	records, err := p.source.Fetch(ctx)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("래플 목록 조회에 실패했습니다. 이번 주기를 건너뜁니다")

		p.recordStatus(CycleStatus{LastRun: time.Now(), LastError: err.Error()})
		return
	}

	notified := 0
	for _, record := range records {
		if p.processRecord(ctx, record) {
			notified++
		}
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"fetched_count":  len(records),
		"notified_count": notified,
	}).Debug("래플 확인 주기가 완료되었습니다")

	p.recordStatus(CycleStatus{LastRun: time.Now(), Fetched: len(records), Notified: notified})
}

// processRecord 하나의 래플을 처리하고, 웹훅 알림이 발송되었으면 true를 반환합니다.
// 처리 중 발생한 Panic은 복구되어 해당 래플만 실패로 처리됩니다.
func (p *Poller) processRecord(ctx context.Context, record raffle.Record) (notified bool) {
	id := record.ID.String()

	defer func() {
		if r := recover(); r != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"raffle_id": id,
				"panic":     r,
			}).Error("래플 처리 중 Panic이 발생했습니다")
			notified = false
		}
	}()

	// 확인과 기록이 원자적으로 수행되므로 동일 래플에 대한 중복 알림은 발생하지 않습니다.
	if !p.seen.MarkIfNew(id) {
		return false
	}

	bucket, ok := p.resolver.Resolve(record.Locale)
	if !ok {
		applog.WithComponentAndFields(component, applog.Fields{
			"raffle_id": id,
			"locale":    record.Locale,
		}).Debug("지역 버킷으로 분류되지 않는 래플입니다. 알림을 건너뜁니다")
		return false
	}

	if _, allowed := p.allow[bucket]; !allowed {
		applog.WithComponentAndFields(component, applog.Fields{
			"raffle_id": id,
			"locale":    record.Locale,
			"bucket":    bucket,
		}).Debug("알림이 허용되지 않은 지역 버킷의 래플입니다. 알림을 건너뜁니다")
		return false
	}

	urls := p.directory.URLs(bucket)
	if len(urls) == 0 {
		applog.WithComponentAndFields(component, applog.Fields{
			"raffle_id": id,
			"bucket":    bucket,
		}).Warn("지역 버킷에 등록된 웹훅 URL이 없습니다. 알림을 건너뜁니다")
		return false
	}

	message := p.formatter.BuildNotification(record)
	results := p.dispatcher.Dispatch(ctx, message, urls)

	succeeded := 0
	for _, result := range results {
		if result.Err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"raffle_id": id,
				"bucket":    bucket,
				"url":       applog.MaskSensitiveData(result.URL),
				"error":     result.Err,
			}).Error("웹훅 발송에 실패했습니다")
			continue
		}
		succeeded++
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"raffle_id":       id,
		"product":         record.Product.Name,
		"bucket":          bucket,
		"succeeded_count": succeeded,
		"total_count":     len(results),
	}).Info("새로운 래플 알림을 발송했습니다")

	return true
}

// recordStatus 확인 주기의 결과 요약을 갱신합니다.
func (p *Poller) recordStatus(status CycleStatus) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	p.status = status
}
