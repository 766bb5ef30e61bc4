package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	apperrors "github.com/swiftraffles/raffle-notify-server/internal/pkg/errors"
)

// Registry 지역 버킷별 웹훅 URL 목록을 관리하는 저장소입니다.
//
// 메모리상의 매핑이 원본이며, 변경이 발생할 때마다 전체 매핑이
// JSON 문서(지역 버킷 이름 → URL 배열)로 파일에 다시 기록됩니다.
type Registry struct {
	mu       sync.RWMutex
	urls     map[string][]string
	filePath string
}

// NewRegistry 지정된 파일을 저장소로 사용하는 새로운 Registry를 생성합니다.
func NewRegistry(filePath string) *Registry {
	return &Registry{
		urls:     make(map[string][]string),
		filePath: filePath,
	}
}

// Load 저장 파일로부터 웹훅 URL 매핑을 읽어들입니다.
// 파일이 아직 존재하지 않는 경우는 에러가 아니며, 빈 매핑으로 시작합니다.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		// 아직 저장 파일이 생성되기 전이라면 빈 매핑으로 시작한다.
		// 그 외의 읽기 실패(권한 부족 등)를 빈 매핑으로 대체하면 다음 저장 시
		// 기존에 등록된 URL들이 모두 유실되므로 반드시 에러로 보고한다.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("웹훅 저장 파일(%s)을 읽는데 실패했습니다", r.filePath))
	}

	urls := make(map[string][]string)
	if err := json.Unmarshal(data, &urls); err != nil {
		return apperrors.Wrap(err, apperrors.ParsingFailed, fmt.Sprintf("웹훅 저장 파일(%s)의 JSON 변환이 실패하였습니다", r.filePath))
	}

	r.urls = urls

	return nil
}

// Append 지정된 지역 버킷에 웹훅 URL을 추가하고 전체 매핑을 파일에 저장합니다.
// 동일한 버킷에 이미 등록된 URL을 다시 추가하면 InvalidInput 에러를 반환합니다.
func (r *Registry) Append(bucket, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.urls[bucket], url) {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("이미 지역 버킷('%s')에 등록된 웹훅 URL입니다", bucket))
	}

	r.urls[bucket] = append(r.urls[bucket], url)

	if err := r.saveLocked(); err != nil {
		// 저장 실패 시 메모리상의 변경을 되돌려 파일과의 정합성을 유지한다.
		r.urls[bucket] = r.urls[bucket][:len(r.urls[bucket])-1]
		if len(r.urls[bucket]) == 0 {
			delete(r.urls, bucket)
		}
		return err
	}

	return nil
}

// URLs 지정된 지역 버킷에 등록된 웹훅 URL 목록의 복사본을 반환합니다.
func (r *Registry) URLs(bucket string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.urls[bucket])
}

// URLCounts 지역 버킷별 등록된 웹훅 URL의 개수를 반환합니다.
func (r *Registry) URLCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.urls))
	for bucket, urls := range r.urls {
		counts[bucket] = len(urls)
	}

	return counts
}

// saveLocked 잠금이 획득된 상태에서 전체 매핑을 파일에 저장합니다. (Atomic Write 적용)
func (r *Registry) saveLocked() error {
	data, err := json.MarshalIndent(r.urls, "", "\t")
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "웹훅 URL 매핑의 마샬링에 실패했습니다")
	}

	dir := filepath.Dir(r.filePath)

	// 임시 파일 생성 (같은 디렉토리 내에 생성해야 Rename이 안전함)
	tmpFile, err := os.CreateTemp(dir, "webhooks-*.tmp")
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "임시 파일 생성에 실패했습니다")
	}
	tmpName := tmpFile.Name()

	// 확실한 cleanup을 위해 defer로 삭제 시도 (Rename 성공 시에는 에러 무시됨)
	defer os.Remove(tmpName)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return apperrors.Wrap(err, apperrors.Internal, "임시 파일 쓰기에 실패했습니다")
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return apperrors.Wrap(err, apperrors.Internal, "임시 파일 동기화에 실패했습니다")
	}

	// 파일 닫기 (Windows에서는 닫지 않으면 Rename 불가)
	if err := tmpFile.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "임시 파일 닫기에 실패했습니다")
	}

	// 임시 파일을 원본 파일명으로 변경
	if err := os.Rename(tmpName, r.filePath); err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "파일 이름 변경(저장)에 실패했습니다")
	}

	return nil
}
