package api

import (
	"fmt"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
	applog "github.com/swiftraffles/raffle-notify-server/pkg/log"
)

// logrusRecover Panic을 복구하여 Logrus로 기록하는 미들웨어를 반환합니다.
func logrusRecover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = apperrors.New(apperrors.Internal, fmt.Sprintf("%v", r))
					}

					stack := make([]byte, 4<<10) // 4KB
					length := runtime.Stack(stack, false)

					applog.WithComponentAndFields(component, applog.Fields{
						"error":      err,
						"stack":      string(stack[:length]),
						"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
					}).Error("PANIC RECOVERED")

					c.Error(err)
				}
			}()
			return next(c)
		}
	}
}

// logrusLogger HTTP 요청/응답 정보를 구조화된 로그로 기록하는 미들웨어를 반환합니다.
func logrusLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			applog.WithComponentAndFields(component, applog.Fields{
				"remote_ip":     c.RealIP(),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"status":        res.Status,
				"latency_human": time.Since(start).String(),
				"request_id":    res.Header().Get(echo.HeaderXRequestID),
			}).Info("http 요청 처리됨")

			return nil
		}
	}
}
