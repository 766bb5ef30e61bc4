package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "raffle-notify-server"

	// DefaultFilename 애플리케이션 초기화 시 참조하는 기본 설정 파일명입니다.
	// 실행 인자를 통해 명시적인 경로가 제공되지 않을 경우, 시스템은 이 파일을 탐색하여 구성을 로드합니다.
	DefaultFilename = AppName + ".json"

	// DefaultRegionBucket 레거시 플랫 리스트 모드에서 사용되는 기본 지역 버킷의 이름입니다.
	DefaultRegionBucket = "default"

	// WildcardLocale 지역 버킷에 부여 시 모든 Locale을 허용하는 와일드카드입니다.
	WildcardLocale = "*"
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug        bool               `json:"debug"`
	Admin        AdminConfig        `json:"admin"`
	Telegram     TelegramConfig     `json:"telegram"`
	Upstream     UpstreamConfig     `json:"upstream"`
	Poll         PollConfig         `json:"poll"`
	Notification NotificationConfig `json:"notification"`
	Regions      RegionConfig       `json:"regions"`
	API          APIConfig          `json:"api"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate() error {
	if err := validateStruct(c.Admin, "Admin"); err != nil {
		return err
	}
	if err := validateStruct(c.Telegram, "Telegram"); err != nil {
		return err
	}
	if err := validateStruct(c.Upstream, "Upstream"); err != nil {
		return err
	}
	if err := c.Poll.validate(); err != nil {
		return err
	}
	if err := validateStruct(c.Notification, "Notification"); err != nil {
		return err
	}
	if err := c.Regions.validate(); err != nil {
		return err
	}
	if err := validateStruct(c.API, "API"); err != nil {
		return err
	}

	return nil
}

// AdminConfig 봇 명령어 사용 권한을 가진 관리자 정보를 담는 설정 구조체
type AdminConfig struct {
	// UserID 관리자의 채팅 플랫폼 사용자 식별자입니다.
	// 이 값과 정확히 일치하는 사용자의 명령어만 처리됩니다.
	UserID int64 `json:"user_id" validate:"required"`
}

// TelegramConfig 텔레그램 봇 토큰 및 채팅 ID 정보를 담는 설정 구조체
type TelegramConfig struct {
	BotToken string `json:"bot_token" validate:"required"`
	ChatID   int64  `json:"chat_id" validate:"required"`
}

// UpstreamConfig 래플 목록 API 접속 정보를 담는 설정 구조체
type UpstreamConfig struct {
	URL string `json:"url" validate:"required,url"`

	// AuthToken / RefreshToken 업스트림 인증 헤더(x-supabase-auth/x-supabase-refresh)에 그대로 전달됩니다.
	AuthToken    string `json:"auth_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`

	// FetchLimit 한 번의 요청으로 조회할 최근 래플의 최대 개수입니다.
	FetchLimit int `json:"fetch_limit" validate:"min=1,max=100"`
}

// PollConfig 주기적인 래플 확인 작업의 동작을 정의하는 설정 구조체
type PollConfig struct {
	// Interval 래플 목록 확인 주기입니다. (time.ParseDuration 형식, 예: "60s", "2m")
	Interval string `json:"interval" validate:"required"`

	// SeenCapacity 알림 처리된 래플 ID를 기억하는 최대 개수입니다. (0: 무제한)
	SeenCapacity int `json:"seen_capacity" validate:"min=0"`
}

func (c *PollConfig) validate() error {
	if err := validateStruct(*c, "Poll"); err != nil {
		return err
	}

	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("래플 확인 주기(poll.interval) 설정이 올바르지 않습니다: '%s' (예: 60s, 2m)", c.Interval))
	}
	if interval < time.Second {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("래플 확인 주기(poll.interval)는 1초 이상이어야 합니다: '%s'", c.Interval))
	}

	return nil
}

// IntervalDuration 파싱된 래플 확인 주기를 반환합니다. 반드시 validate() 이후에 호출해야 합니다.
func (c *PollConfig) IntervalDuration() time.Duration {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		// validate()를 통과한 설정에서는 도달할 수 없습니다.
		panic(fmt.Sprintf("잘못된 poll.interval 값: %s", c.Interval))
	}
	return interval
}

// NotificationConfig 웹훅 알림의 표시 정보와 저장 위치를 정의하는 설정 구조체
type NotificationConfig struct {
	// BotName 웹훅 메시지에 표시되는 봇 이름입니다.
	BotName string `json:"bot_name" validate:"required"`

	// AvatarURL 웹훅 메시지에 표시되는 아바타 이미지 주소입니다.
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`

	// WebhookFile 지역별 웹훅 URL 매핑이 저장되는 JSON 문서의 경로입니다.
	// 웹훅 등록 명령어가 실행될 때마다 전체 매핑이 이 파일에 다시 기록됩니다.
	WebhookFile string `json:"webhook_file" validate:"required"`
}

// RegionConfig 래플의 Locale을 지역 버킷으로 분류하는 규칙과 알림 허용 목록을 정의하는 설정 구조체
type RegionConfig struct {
	// Allow 알림 발송이 허용된 지역 버킷의 목록입니다.
	// 이 목록에 포함되지 않은 버킷으로 분류된 래플은 처리된 것으로 기록되지만 알림은 발송되지 않습니다.
	Allow []string `json:"allow" validate:"required,min=1"`

	// Buckets 지역 버킷별 Locale 표시 이름의 목록입니다.
	// 와일드카드("*")가 포함된 버킷은 모든 Locale과 매칭됩니다. (레거시 플랫 리스트 모드)
	Buckets map[string][]string `json:"buckets" validate:"required,min=1"`
}

func (c *RegionConfig) validate() error {
	if err := validateStruct(*c, "Regions"); err != nil {
		return err
	}

	var bucketNames []string
	for name, locales := range c.Buckets {
		if strings.TrimSpace(name) == "" {
			return apperrors.New(apperrors.InvalidInput, "지역 버킷의 이름은 비어있을 수 없습니다")
		}
		if len(locales) == 0 {
			return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지역 버킷('%s')의 Locale 목록이 비어있습니다", name))
		}
		bucketNames = append(bucketNames, name)
	}

	// 허용 목록이 참조하는 버킷의 존재 여부 확인
	for _, allowed := range c.Allow {
		if !slices.Contains(bucketNames, allowed) {
			return apperrors.New(apperrors.NotFound, fmt.Sprintf("허용 목록(regions.allow)에서 참조하는 지역 버킷('%s')이 정의되지 않았습니다", allowed))
		}
	}

	return nil
}

// APIConfig 상태 조회용 HTTP API 서버의 설정 구조체
type APIConfig struct {
	Enabled    bool `json:"enabled"`
	ListenPort int  `json:"listen_port" validate:"min=1,max=65535"`
}

// defaultAppConfig 설정 파일에서 생략 가능한 항목들의 기본값을 반환합니다.
func defaultAppConfig() AppConfig {
	return AppConfig{
		Upstream: UpstreamConfig{
			FetchLimit: 16,
		},
		Poll: PollConfig{
			Interval:     "60s",
			SeenCapacity: 4096,
		},
		Notification: NotificationConfig{
			BotName:     "Swift Raffles",
			WebhookFile: "webhooks.json",
		},
		Regions: RegionConfig{
			Allow: []string{"US", "EU", "WW"},
			Buckets: map[string][]string{
				"US": {"United States"},
				"EU": {"Europe"},
				"WW": {"Worldwide"},
			},
		},
		API: APIConfig{
			Enabled:    true,
			ListenPort: 8080,
		},
	}
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
//
// 로드 우선순위: 기본값 < JSON 설정 파일 < 환경 변수(RAFFLE_ 접두사)
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	if err := k.Load(structs.Provider(defaultAppConfig(), "json"), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.System, fmt.Sprintf("설정 파일을 찾을 수 없습니다: '%s'", filename))
		}
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
	}

	// 3. 환경 변수 로드 (최우선 순위, JSON 설정 덮어쓰기)
	// 접두사: RAFFLE_
	// 구분자: 이중 언더스코어(__)를 점(.)으로 변환 (계층 구조 표현)
	// 예: RAFFLE_UPSTREAM__AUTH_TOKEN -> upstream.auth_token
	if err := k.Load(env.Provider("RAFFLE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RAFFLE_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 4. 구조체 언마샬링 (Strict Validation 적용)
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true, // 파일에 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
		},
	}
	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	// 5. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}
