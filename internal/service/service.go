// Package service 애플리케이션을 구성하는 개별 서비스들의 공통 계약을 정의합니다.
package service

import (
	"context"
	"sync"
)

// Service 애플리케이션 생명주기에 참여하는 서비스의 공통 인터페이스입니다.
//
// Start는 서비스를 비동기로 구동한 뒤 즉시 반환해야 하며,
// serviceStopCtx가 취소되면 스스로 정리 작업을 수행하고 serviceStopWG.Done()을 호출해야 합니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}
