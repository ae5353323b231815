// file: internal/classifier/classifier.go
// version: 1.1.0
// guid: 2597f5e7-8927-423f-8a6b-b02adc9e932a

// Package classifier maps free-text subject labels onto the nine KDC
// categories.
package classifier

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jdfalk/libshelf/internal/models"
	"github.com/jdfalk/libshelf/internal/textmatch"
)

type group struct {
	category int
	keywords []string
}

// groups are checked in order and the first hit wins, so literature is
// preferred over science when a label mentions both.
var groups = []group{
	{7, []string{"소설", "시", "희곡", "에세이", "문학", "만화", "라이트노벨", "로맨스", "판타지", "무협", "bl"}},
	{8, []string{"역사", "지리", "여행", "전기", "인물"}},
	{1, []string{"철학", "심리", "자기계발", "인문", "윤리"}},
	{2, []string{"종교", "신화", "역학", "불교", "기독교", "명상"}},
	{3, []string{"과학", "수학", "물리", "화학", "생물", "천문", "지구"}},
	{4, []string{"의학", "건강", "공학", "요리", "살림", "가정", "농업", "원예", "기술"}},
	{5, []string{"예술", "음악", "미술", "사진", "영화", "연극", "체육", "스포츠", "취미", "대중문화"}},
	{6, []string{"언어", "외국어", "영어", "일본어", "중국어", "한국어", "어학", "사전"}},
	{0, []string{"컴퓨터", "프로그래밍", "it", "경제", "경영", "사회", "정치", "법률", "교육", "수험서", "자격증", "참고서"}},
	{7, []string{"어린이", "유아", "청소년", "동화"}},
}

// wholeToken reports whether kw is an ASCII keyword short enough that a
// substring hit would be noise (it inside digital).
func wholeToken(kw string) bool {
	n := utf8.RuneCountInString(kw)
	return n <= 2 && kw[0] < utf8.RuneSelf
}

// edgeOnly reports whether kw is a single syllable that must open or close
// a token. 시집 and 현대시 match 시; 레시피 does not.
func edgeOnly(kw string) bool {
	return utf8.RuneCountInString(kw) == 1
}

func matches(normalized string, tokens []string, kw string) bool {
	switch {
	case wholeToken(kw):
		return slices.Contains(tokens, kw)
	case edgeOnly(kw):
		for _, tok := range tokens {
			if strings.HasPrefix(tok, kw) || strings.HasSuffix(tok, kw) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(normalized, kw)
	}
}

// Classify returns the KDC category for text, or models.Unclassified when
// no keyword matches. It is pure and total.
func Classify(text string) int {
	normalized := textmatch.Normalize(text)
	if normalized == "" {
		return models.Unclassified
	}
	tokens := textmatch.Tokens(normalized)
	for _, g := range groups {
		for _, kw := range g.keywords {
			if matches(normalized, tokens, kw) {
				return g.category
			}
		}
	}
	return models.Unclassified
}

// ClassifyAll classifies each label in turn and returns the first hit.
func ClassifyAll(labels ...string) int {
	for _, l := range labels {
		if c := Classify(l); c != models.Unclassified {
			return c
		}
	}
	return models.Unclassified
}
