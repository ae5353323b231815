// file: internal/textmatch/textmatch_test.go
// version: 1.0.0
// guid: f4f87eb2-15e3-4679-8dae-bc1ef523925b

package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestNormalize(t *testing.T) {
	decomposed := norm.NFD.String("한국")
	assert.NotEqual(t, "한국", decomposed)
	assert.Equal(t, "한국", Normalize(decomposed))
	assert.Equal(t, "hello world", Normalize("  Hello WORLD "))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Korean Library Club", "library"))
	assert.True(t, Contains("나만의 도서관", "도서관"))
	assert.True(t, Contains("anything", ""))
	assert.False(t, Contains("책방", "도서관"))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("헤세", "데미안", "헤르만 헤세"))
	assert.False(t, ContainsAny("카뮈", "데미안", "헤르만 헤세"))
	assert.True(t, ContainsAny("  ", "x"))
}

func TestFuzzyAny(t *testing.T) {
	assert.True(t, FuzzyAny("dmn", "Demian"))
	assert.False(t, FuzzyAny("zzz", "Demian"))
	assert.GreaterOrEqual(t, Rank("dem", "demian"), 0)
	assert.Equal(t, -1, Rank("xyz", "demian"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"소설", "시", "희곡", "한국소설"}, Tokens("소설/시/희곡 > 한국소설"))
	assert.Equal(t, []string{"it", "모바일"}, Tokens("IT·모바일"))
	assert.Empty(t, Tokens("  "))
}
