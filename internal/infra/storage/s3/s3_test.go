package s3

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagingKeyUniquePerUpload(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		k := stagingKey()
		require.True(t, strings.HasPrefix(k, "tmp/"), "key %q outside staging prefix", k)
		require.NotContains(t, seen, k, "staging key reused, concurrent uploads would collide")
		seen[k] = struct{}{}
	}
}
