package poller

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swiftraffles/raffle-notify-server/internal/config"

	"github.com/swiftraffles/raffle-notify-server/internal/service/raffle"
	"github.com/swiftraffles/raffle-notify-server/internal/service/webhook"
)

// fakeSource returns a configurable record list or error.
type fakeSource struct {
	mu      sync.Mutex
	records []raffle.Record
	err     error
}

func (f *fakeSource) Fetch(_ context.Context) ([]raffle.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return append([]raffle.Record(nil), f.records...), nil
}

func (f *fakeSource) set(records []raffle.Record, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = records
	f.err = err
}

// dispatchCall records a single Dispatch invocation.
type dispatchCall struct {
	message webhook.Message
	urls    []string
}

// fakeDispatcher records calls and returns results produced by the hook.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall

	// hook overrides the default all-success result when set.
	hook func(message webhook.Message, urls []string) []webhook.Result
}

func (f *fakeDispatcher) Dispatch(_ context.Context, message webhook.Message, urls []string) []webhook.Result {
	f.mu.Lock()
	f.calls = append(f.calls, dispatchCall{message: message, urls: urls})
	f.mu.Unlock()

	if f.hook != nil {
		return f.hook(message, urls)
	}

	results := make([]webhook.Result, len(urls))
	for i, url := range urls {
		results[i] = webhook.Result{URL: url}
	}
	return results
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// fakeDirectory serves webhook URLs from a fixed map.
type fakeDirectory struct {
	urls map[string][]string
}

func (f *fakeDirectory) URLs(bucket string) []string {
	return f.urls[bucket]
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Poll: config.PollConfig{
			Interval:     "60s",
			SeenCapacity: 4096,
		},
		Regions: config.RegionConfig{
			Allow: []string{"US", "WW"},
			Buckets: map[string][]string{
				"US": {"United States"},
				"WW": {"Worldwide"},
				"JP": {"Japan"},
			},
		},
	}
}

func testRecord(id, locale string) raffle.Record {
	return raffle.Record{
		ID:     json.Number(id),
		Locale: locale,
		Type:   "Online Raffle",
		URL:    "https://example.com/raffle/" + id,
		Product: raffle.Product{
			Name:       "Product " + id,
			StockXSlug: "product-" + id,
		},
		Retailer: raffle.Retailer{Name: "Example Store"},
	}
}

func newTestPoller(cfg *config.AppConfig, source RaffleSource, dispatcher Dispatcher, directory WebhookDirectory) *Poller {
	return NewService(
		cfg,
		source,
		raffle.NewSeenStore(cfg.Poll.SeenCapacity),
		raffle.NewRegionResolver(cfg.Regions.Buckets),
		raffle.NewFormatter("Swift Raffles", ""),
		dispatcher,
		directory,
	)
}

func TestPoller_CheckRaffles(t *testing.T) {
	directory := &fakeDirectory{urls: map[string][]string{
		"US": {"https://example.com/hook/us"},
		"WW": {"https://example.com/hook/ww"},
		"JP": {"https://example.com/hook/jp"},
	}}

	t.Run("시작 시점에 존재하던 래플은 알림 없음", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.seedSeenStore(context.Background())
		p.checkRaffles(context.Background())

		assert.Equal(t, 0, dispatcher.callCount())
	})

	t.Run("새로운 래플은 정확히 한 번만 알림", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.seedSeenStore(context.Background())

		source.set([]raffle.Record{testRecord("1", "United States"), testRecord("2", "United States")}, nil)

		p.checkRaffles(context.Background())
		p.checkRaffles(context.Background())

		require.Equal(t, 1, dispatcher.callCount())
		assert.Equal(t, []string{"https://example.com/hook/us"}, dispatcher.calls[0].urls)
		assert.Equal(t, "Product 2", dispatcher.calls[0].message.Embeds[0].Title)
	})

	t.Run("허용되지 않은 버킷의 래플은 기록만 되고 알림 없음", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "Japan")}}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.checkRaffles(context.Background())
		assert.Equal(t, 0, dispatcher.callCount())

		// 다음 주기에도 동일 래플은 다시 처리되지 않는다.
		p.checkRaffles(context.Background())
		assert.Equal(t, 0, dispatcher.callCount())
		assert.Equal(t, 1, p.SeenCount())
	})

	t.Run("분류되지 않는 Locale의 래플은 알림 없음", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "Mars")}}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.checkRaffles(context.Background())

		assert.Equal(t, 0, dispatcher.callCount())
		assert.Equal(t, 1, p.SeenCount())
	})

	t.Run("웹훅 URL이 없는 버킷의 래플은 알림 없음", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
		dispatcher := &fakeDispatcher{}
		emptyDirectory := &fakeDirectory{urls: map[string][]string{}}
		p := newTestPoller(testAppConfig(), source, dispatcher, emptyDirectory)

		p.checkRaffles(context.Background())

		assert.Equal(t, 0, dispatcher.callCount())
		assert.Equal(t, 1, p.SeenCount())
	})

	t.Run("조회 실패 주기는 건너뛰고 서비스는 계속됨", func(t *testing.T) {
		source := &fakeSource{err: assert.AnError}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.checkRaffles(context.Background())

		status := p.Status()
		assert.NotEmpty(t, status.LastError)
		assert.Equal(t, 0, dispatcher.callCount())

		// 다음 주기에 조회가 복구되면 새로운 래플이 정상적으로 알림된다.
		source.set([]raffle.Record{testRecord("1", "United States")}, nil)
		p.checkRaffles(context.Background())

		assert.Equal(t, 1, dispatcher.callCount())
	})

	t.Run("일부 웹훅 발송 실패에도 알림은 완료로 처리", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
		dispatcher := &fakeDispatcher{
			hook: func(_ webhook.Message, urls []string) []webhook.Result {
				results := make([]webhook.Result, len(urls))
				for i, url := range urls {
					results[i] = webhook.Result{URL: url}
				}
				results[0].Err = assert.AnError
				return results
			},
		}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.checkRaffles(context.Background())

		status := p.Status()
		assert.Equal(t, 1, status.Notified)
	})

	t.Run("하나의 래플 처리 중 Panic은 다른 래플에 영향 없음", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{
			testRecord("1", "United States"),
			testRecord("2", "United States"),
		}}

		dispatched := 0
		dispatcher := &fakeDispatcher{
			hook: func(message webhook.Message, urls []string) []webhook.Result {
				if message.Embeds[0].Title == "Product 1" {
					panic("dispatch failure")
				}
				dispatched++
				return []webhook.Result{{URL: urls[0]}}
			},
		}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		p.checkRaffles(context.Background())

		assert.Equal(t, 1, dispatched)

		status := p.Status()
		assert.Equal(t, 2, status.Fetched)
		assert.Equal(t, 1, status.Notified)
	})

	t.Run("주기 완료 후 상태 요약 갱신", func(t *testing.T) {
		source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
		dispatcher := &fakeDispatcher{}
		p := newTestPoller(testAppConfig(), source, dispatcher, directory)

		before := time.Now()
		p.checkRaffles(context.Background())

		status := p.Status()
		assert.False(t, status.LastRun.Before(before))
		assert.Equal(t, 1, status.Fetched)
		assert.Equal(t, 1, status.Notified)
		assert.Empty(t, status.LastError)
	})
}

func TestPoller_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := &fakeSource{records: []raffle.Record{testRecord("1", "United States")}}
	dispatcher := &fakeDispatcher{}
	directory := &fakeDirectory{urls: map[string][]string{}}

	p := newTestPoller(testAppConfig(), source, dispatcher, directory)

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	serviceStopWG.Add(1)
	require.NoError(t, p.Start(serviceStopCtx, serviceStopWG))

	// 시작 시점의 래플 목록으로 처리 기록이 초기화된다.
	assert.Equal(t, 1, p.SeenCount())

	cancel()
	serviceStopWG.Wait()
}
