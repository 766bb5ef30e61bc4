package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
)

// validate 패키지 전역 Validator 인스턴스입니다.
var validate = newValidator()

// newValidator 새로운 Validator 인스턴스를 생성합니다.
func newValidator() *validator.Validate {
	v := validator.New()

	// 검증 에러가 났을 때, 에러 메시지에 Go 구조체 필드명(예: BotToken) 대신
	// JSON 이름(예: bot_token)을 보여주도록 설정합니다.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// validateStruct 구조체 인스턴스의 유효성을 태그 규칙에 따라 검증하고,
// 발생한 오류를 사용자 친화적인 도메인 에러로 변환합니다.
func validateStruct(s interface{}, contextName string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 설정 검증 중 알 수 없는 오류가 발생했습니다", contextName))
	}

	// 첫 번째 에러만 상세히 보고
	firstErr := validationErrors[0]

	switch firstErr.Tag() {
	case "required":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s 설정의 필수 항목('%s')이 누락되었습니다", contextName, firstErr.Field()))
	case "url":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s 설정의 '%s' 항목이 올바른 URL 형식이 아닙니다: '%v'", contextName, firstErr.Field(), firstErr.Value()))
	case "min", "max":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s 설정의 '%s' 항목이 허용 범위를 벗어났습니다: '%v'", contextName, firstErr.Field(), firstErr.Value()))
	default:
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s 설정의 '%s' 항목이 유효하지 않습니다 (규칙: %s)", contextName, firstErr.Field(), firstErr.Tag()))
	}
}
