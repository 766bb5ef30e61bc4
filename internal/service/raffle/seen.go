package raffle

import (
	"sync"
)

// SeenStore 알림 처리된 래플 ID를 기억하는 인메모리 저장소입니다.
//
// capacity가 0보다 크면 저장 개수가 상한을 넘을 때 가장 오래전에 기록된 ID부터
// 순서대로 제거됩니다(FIFO). 업스트림 피드는 최근 항목만 반환하므로,
// 피드 조회 개수보다 충분히 큰 상한이라면 중복 알림은 발생하지 않습니다.
type SeenStore struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	order    []string
	capacity int
}

// NewSeenStore 지정된 상한(capacity)을 가진 새로운 SeenStore를 생성합니다. (0: 무제한)
func NewSeenStore(capacity int) *SeenStore {
	if capacity < 0 {
		capacity = 0
	}

	return &SeenStore{
		ids:      make(map[string]struct{}),
		capacity: capacity,
	}
}

// SeedFrom 래플 목록의 모든 ID를 이미 처리된 것으로 기록하고, 새로 기록된 개수를 반환합니다.
// 서비스 시작 시점에 존재하던 래플에 대한 소급 알림을 방지하기 위해 사용됩니다.
func (s *SeenStore) SeedFrom(records []Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := 0
	for _, record := range records {
		if s.markLocked(record.ID.String()) {
			seeded++
		}
	}

	return seeded
}

// MarkIfNew 아직 기록되지 않은 ID이면 기록하고 true를, 이미 기록된 ID이면 false를 반환합니다.
// 확인과 기록이 하나의 잠금 안에서 수행되므로 동일 ID에 대해 true는 한 번만 반환됩니다.
func (s *SeenStore) MarkIfNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markLocked(id)
}

// IsNew 지정된 ID가 아직 기록되지 않았는지 확인합니다.
//
// 확인 후 기록까지 필요한 경로에서는 이 메서드와 MarkSeen을 각각 호출하지 말고
// 두 단계를 하나의 잠금으로 합친 MarkIfNew를 사용해야 합니다.
func (s *SeenStore) IsNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.ids[id]
	return !exists
}

// MarkSeen 지정된 ID를 처리된 것으로 기록합니다. 이미 기록된 ID는 무시됩니다.
// 새로 기록되었는지 여부가 필요하면 MarkIfNew를 사용합니다.
func (s *SeenStore) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markLocked(id)
}

// Len 현재 기록된 ID의 개수를 반환합니다.
func (s *SeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// markLocked 잠금이 획득된 상태에서 ID를 기록합니다. 새로 기록되었으면 true를 반환합니다.
func (s *SeenStore) markLocked(id string) bool {
	if _, exists := s.ids[id]; exists {
		return false
	}

	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	// 상한 초과 시 가장 오래된 ID부터 제거
	if s.capacity > 0 {
		for len(s.order) > s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.ids, oldest)
		}
	}

	return true
}
