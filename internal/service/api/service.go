// Package api 서비스의 동작 상태를 조회하는 HTTP API 서버입니다.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
	"github.com/swiftraffles/raffle-notify-server/internal/pkg/version"
	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"

	"github.com/swiftraffles/raffle-notify-server/internal/service/poller"
)

// component API 서비스의 로깅용 컴포넌트 이름
const component = "api.service"

const (
	// shutdownTimeout http 서버 종료 시 처리 중인 요청의 완료를 대기하는 최대 시간입니다.
	shutdownTimeout = 5 * time.Second

	// rateLimitPerSecond 클라이언트(IP)별 초당 허용되는 최대 요청 수입니다.
	rateLimitPerSecond = 20
)

// StatusProvider 확인 작업의 진행 상태를 조회하는 인터페이스입니다.
type StatusProvider interface {
	Status() poller.CycleStatus
	SeenCount() int
}

// WebhookCounter 지역 버킷별 등록된 웹훅 URL의 개수를 조회하는 인터페이스입니다.
type WebhookCounter interface {
	URLCounts() map[string]int
}

// Service 서비스의 동작 상태를 외부에 노출하는 HTTP API 서버입니다.
type Service struct {
	appConfig *config.AppConfig

	statusProvider StatusProvider
	webhookCounter WebhookCounter

	startedAt time.Time

	running   bool
	runningMu sync.Mutex
}

// NewService 새로운 API 서비스 인스턴스를 생성합니다.
func NewService(appConfig *config.AppConfig, statusProvider StatusProvider, webhookCounter WebhookCounter) *Service {
	if statusProvider == nil {
		panic("StatusProvider는 필수입니다")
	}
	if webhookCounter == nil {
		panic("WebhookCounter는 필수입니다")
	}

	return &Service{
		appConfig: appConfig,

		statusProvider: statusProvider,
		webhookCounter: webhookCounter,
	}
}

// Start 상태 조회 API 서버를 시작합니다. 설정에서 비활성화된 경우 아무 동작도 하지 않습니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: API 서비스 초기화 프로세스를 시작합니다")

	if !s.appConfig.API.Enabled {
		serviceStopWG.Done()
		applog.WithComponent(component).Info("API 서비스가 설정에서 비활성화되어 있습니다")
		return nil
	}

	if s.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("API 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	s.startedAt = time.Now()
	s.running = true

	go s.run(serviceStopCtx, serviceStopWG)

	applog.WithComponentAndFields(component, applog.Fields{
		"listen_port": s.appConfig.API.ListenPort,
	}).Info("서비스 시작 완료: API 서비스가 정상적으로 초기화되었습니다")

	return nil
}

// run http 서버를 구동하고 서비스 종료 신호를 대기합니다.
func (s *Service) run(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	e := s.newEcho()

	// httpServerDone http 서버 고루틴의 완전한 종료를 보장하기 위한 채널
	httpServerDone := make(chan struct{})

	go func(listenPort int) {
		defer close(httpServerDone)

		// Start() 함수는 항상 nil이 아닌 error를 반환한다.
		err := e.Start(fmt.Sprintf(":%d", listenPort))
		if errors.Is(err, http.ErrServerClosed) {
			applog.WithComponent(component).Info("http 서버가 중지되었습니다")
		} else {
			applog.WithComponentAndFields(component, applog.Fields{
				"port":  listenPort,
				"error": err,
			}).Error("http 서버를 구성하는 중에 치명적인 오류가 발생하였습니다")
		}
	}(s.appConfig.API.ListenPort)

	<-serviceStopCtx.Done()

	applog.WithComponent(component).Info("종료 절차 진입: API 서비스 중지 시그널을 수신했습니다")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Error("http 서버 종료 중 오류가 발생하였습니다")
	}

	<-httpServerDone

	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	applog.WithComponent(component).Info("API 서비스 종료 완료: 모든 리소스가 정리되었습니다")
}

// newEcho 미들웨어와 라우트 설정이 완료된 Echo 인스턴스를 생성합니다.
func (s *Service) newEcho() *echo.Echo {
	e := echo.New()

	e.Debug = s.appConfig.Debug
	e.HideBanner = true
	e.HidePort = true

	// 미들웨어 적용 (권장 순서)
	e.Use(logrusRecover())        // 1. Panic 복구
	e.Use(middleware.RequestID()) // 2. Request ID
	e.Use(logrusLogger())         // 3. 로깅
	e.Use(middleware.RateLimiter( // 4. 클라이언트(IP)별 요청 속도 제한
		middleware.NewRateLimiterMemoryStore(rate.Limit(rateLimitPerSecond)),
	))

	e.GET("/healthz", s.healthzHandler)
	e.GET("/status", s.statusHandler)

	return e
}

// healthzHandler 서비스의 생존 여부를 반환합니다.
func (s *Service) healthzHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse /status 엔드포인트의 응답 본문입니다.
type statusResponse struct {
	Version       version.Info       `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	SeenCount     int                `json:"seen_count"`
	LastPoll      poller.CycleStatus `json:"last_poll"`
	Webhooks      map[string]int     `json:"webhooks"`
}

// statusHandler 확인 작업의 진행 상태와 등록된 웹훅 현황을 반환합니다.
func (s *Service) statusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Version:       version.Get(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		SeenCount:     s.statusProvider.SeenCount(),
		LastPoll:      s.statusProvider.Status(),
		Webhooks:      s.webhookCounter.URLCounts(),
	})
}
