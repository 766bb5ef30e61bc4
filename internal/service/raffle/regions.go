package raffle

import (
	"slices"

	"github.com/swiftraffles/raffle-notify-server/internal/config"
)

// RegionResolver 래플의 Locale 표시 이름을 설정된 지역 버킷으로 분류합니다.
//
// Locale이 정확히 일치하는 버킷이 우선하며, 일치하는 버킷이 없으면
// 와일드카드("*")가 부여된 버킷으로 분류됩니다. 동일한 Locale이 여러 버킷에
// 중복 정의된 경우, 버킷 이름의 사전순으로 가장 앞선 버킷이 선택됩니다.
type RegionResolver struct {
	exact    map[string]string
	wildcard string

	hasWildcard bool
}

// NewRegionResolver 지역 버킷 설정(버킷 이름 → Locale 목록)으로부터 새로운 RegionResolver를 생성합니다.
func NewRegionResolver(buckets map[string][]string) *RegionResolver {
	resolver := &RegionResolver{
		exact: make(map[string]string),
	}

	// 맵 순회 순서에 의존하지 않도록 버킷 이름을 정렬하여 처리
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, locale := range buckets[name] {
			if locale == config.WildcardLocale {
				if !resolver.hasWildcard {
					resolver.wildcard = name
					resolver.hasWildcard = true
				}
				continue
			}
			if _, exists := resolver.exact[locale]; !exists {
				resolver.exact[locale] = name
			}
		}
	}

	return resolver
}

// Resolve 지정된 Locale이 분류되는 지역 버킷의 이름을 반환합니다.
// 어느 버킷에도 분류되지 않으면 두 번째 반환값이 false입니다.
func (r *RegionResolver) Resolve(locale string) (string, bool) {
	if bucket, exists := r.exact[locale]; exists {
		return bucket, true
	}
	if r.hasWildcard {
		return r.wildcard, true
	}

	return "", false
}
