package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
	"github.com/swiftraffles/raffle-notify-server/internal/pkg/version"
	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"

	"github.com/swiftraffles/raffle-notify-server/internal/service"
	"github.com/swiftraffles/raffle-notify-server/internal/service/api"
	"github.com/swiftraffles/raffle-notify-server/internal/service/bot"
	"github.com/swiftraffles/raffle-notify-server/internal/service/poller"
	"github.com/swiftraffles/raffle-notify-server/internal/service/raffle"
	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

// 빌드 정보 변수 (ldflags로 주입됨)
var (
	Version     = "dev"     // Git 커밋 해시
	BuildDate   = "unknown" // 빌드 날짜
	BuildNumber = "0"       // 빌드 번호
)

const (
	banner = `
  ____          __  __  _        ____         __  __  _
 |  _ \  __ _  / _|/ _|| |  ___ |  _ \  __ _ / _|/ _|| |  ___  ___
 | |_) |/ _' || |_| |_ | | / _ \| |_) |/ _' | |_| |_ | | / _ \/ __|
 |  _ <| (_| ||  _|  _|| ||  __/|  _ <| (_| |  _|  _|| ||  __/\__ \
 |_| \_\\__,_||_| |_|  |_| \___||_| \_\\__,_|_| |_|  |_| \___||___/
                                                                   v%s
--------------------------------------------------------------------------------
`
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU()) // 모든 CPU 사용

	configFile := flag.String("config", config.DefaultFilename, "설정 파일의 경로")
	flag.Parse()

	// 환경설정 정보를 읽어들인다.
	appConfig, err := config.LoadWithFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "설정 파일을 읽을 수 없습니다: %v\n", err)
		os.Exit(1)
	}

	// 로그를 초기화한다.
	logOptions := applog.NewProductionOptions(config.AppName)
	if appConfig.Debug {
		logOptions = applog.NewDevelopmentOptions(config.AppName)
	}

	logCloser, err := applog.Setup(logOptions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "로그 초기화에 실패했습니다: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	applog.SetDebugMode(appConfig.Debug)

	// 아스키아트 출력 (폰트: standard)
	fmt.Printf(banner, Version)

	// 빌드 정보 출력
	version.Set(version.Info{Version: Version, BuildDate: BuildDate, BuildNumber: BuildNumber})
	log.Infof("빌드 정보 - %s", version.Get())

	// 컴포넌트를 생성하고 초기화한다.
	client := raffle.NewClient(&appConfig.Upstream, nil)
	seen := raffle.NewSeenStore(appConfig.Poll.SeenCapacity)
	resolver := raffle.NewRegionResolver(appConfig.Regions.Buckets)
	formatter := raffle.NewFormatter(appConfig.Notification.BotName, appConfig.Notification.AvatarURL)
	dispatcher := webhook.NewDispatcher()

	registry := webhook.NewRegistry(appConfig.Notification.WebhookFile)
	if err := registry.Load(); err != nil {
		log.Fatalf("웹훅 저장 파일을 읽을 수 없습니다: %v", err)
	}

	// 서비스를 생성한다.
	pollerService := poller.NewService(appConfig, client, seen, resolver, formatter, dispatcher, registry)
	botService := bot.NewService(appConfig, registry, client, formatter, dispatcher)
	apiService := api.NewService(appConfig, pollerService, registry)

	// Set up cancellation context and waitgroup
	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	// 서비스를 시작한다.
	services := []service.Service{pollerService, botService, apiService}
	for _, s := range services {
		serviceStopWG.Add(1)
		if err := s.Start(serviceStopCtx, serviceStopWG); err != nil {
			log.Errorf("서비스 시작 실패: %v", err)
			cancel() // 다른 서비스들도 종료
			serviceStopWG.Wait()
			log.Fatal("서비스 초기화 실패로 프로그램을 종료합니다")
		}
	}

	// Handle sigterm and await termC signal
	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	<-termC // Blocks here until interrupted

	// Handle shutdown
	log.Info("Shutdown signal received")
	cancel()             // Signal cancellation to context.Context
	serviceStopWG.Wait() // Block here until are workers are done
}
