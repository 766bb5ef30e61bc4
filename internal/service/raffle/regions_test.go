package raffle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionResolver_Resolve(t *testing.T) {
	t.Run("Locale이 정확히 일치하는 버킷으로 분류", func(t *testing.T) {
		resolver := NewRegionResolver(map[string][]string{
			"US": {"United States"},
			"EU": {"Europe", "United Kingdom"},
		})

		bucket, ok := resolver.Resolve("United States")
		require.True(t, ok)
		assert.Equal(t, "US", bucket)

		bucket, ok = resolver.Resolve("United Kingdom")
		require.True(t, ok)
		assert.Equal(t, "EU", bucket)
	})

	t.Run("일치하는 버킷이 없으면 분류 실패", func(t *testing.T) {
		resolver := NewRegionResolver(map[string][]string{
			"US": {"United States"},
		})

		_, ok := resolver.Resolve("Japan")
		assert.False(t, ok)
	})

	t.Run("와일드카드 버킷은 모든 Locale과 매칭", func(t *testing.T) {
		resolver := NewRegionResolver(map[string][]string{
			"default": {"*"},
		})

		bucket, ok := resolver.Resolve("Japan")
		require.True(t, ok)
		assert.Equal(t, "default", bucket)
	})

	t.Run("정확한 일치가 와일드카드보다 우선", func(t *testing.T) {
		resolver := NewRegionResolver(map[string][]string{
			"US":      {"United States"},
			"default": {"*"},
		})

		bucket, ok := resolver.Resolve("United States")
		require.True(t, ok)
		assert.Equal(t, "US", bucket)

		bucket, ok = resolver.Resolve("Worldwide")
		require.True(t, ok)
		assert.Equal(t, "default", bucket)
	})

	t.Run("중복 정의된 Locale은 사전순으로 앞선 버킷이 선택", func(t *testing.T) {
		resolver := NewRegionResolver(map[string][]string{
			"B": {"United States"},
			"A": {"United States"},
		})

		bucket, ok := resolver.Resolve("United States")
		require.True(t, ok)
		assert.Equal(t, "A", bucket)
	})
}
