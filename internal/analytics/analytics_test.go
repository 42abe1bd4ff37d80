package analytics

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/pttman/internal/model"
)

func makeComments(push, boo, neutral int) []model.Comment {
	var cs []model.Comment
	for i := 0; i < push; i++ {
		cs = append(cs, model.Comment{Category: model.CommentPush, Author: "u", Content: "c"})
	}
	for i := 0; i < boo; i++ {
		cs = append(cs, model.Comment{Category: model.CommentBoo, Author: "u", Content: "c"})
	}
	for i := 0; i < neutral; i++ {
		cs = append(cs, model.Comment{Category: model.CommentNeutral, Author: "u", Content: "c"})
	}
	return cs
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, NoContent, Summarize(""))
}

func TestSummarize_DropsShortFragments(t *testing.T) {
	body := "短句。這是一段超過十個字的第一句內容喔。好。這是第二段同樣超過十個字的句子！第三段也很長但不應該出現在摘要裡面？"
	got := Summarize(body)
	assert.Equal(t, "這是一段超過十個字的第一句內容喔。這是第二段同樣超過十個字的句子", got)
}

func TestSummarize_ExactlyTenRunesIsDropped(t *testing.T) {
	ten := strings.Repeat("字", 10)
	eleven := strings.Repeat("文", 11)
	assert.Equal(t, eleven, Summarize(ten+"\n"+eleven))
}

func TestSummarize_TrimsFragments(t *testing.T) {
	body := "   Hello there my friend.\n   How are you doing today?"
	assert.Equal(t, "Hello there my friend。How are you doing today", Summarize(body))
}

func TestSummarize_Truncates(t *testing.T) {
	body := strings.Repeat("長", 80) + "\n" + strings.Repeat("句", 80)
	got := Summarize(body)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 103, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestSummarize_AllShort(t *testing.T) {
	assert.Equal(t, "", Summarize("嗨。你好！"))
}

func TestTallyOpinions(t *testing.T) {
	assert.Equal(t, NoComments, TallyOpinions(nil))
	assert.Equal(t, NoComments, TallyOpinions([]model.Comment{}))

	cs := makeComments(3, 1, 2)
	cs = append(cs, model.Comment{Category: "?", Author: "x"})
	assert.Equal(t, "推 3 / 噓 1 / 中性 2", TallyOpinions(cs))
}

func TestClassifyPopularity(t *testing.T) {
	tests := []struct {
		name     string
		comments []model.Comment
		want     Popularity
	}{
		{"empty", nil, PopularityCold},
		{"hot positive", makeComments(50, 0, 10), PopularityHotPositive},
		{"moderate", makeComments(20, 0, 15), PopularityModerate},
		{"controversial", makeComments(10, 50, 0), PopularityControversial},
		{"normal", makeComments(5, 6, 0), PopularityNormal},
		{"cold", makeComments(5, 0, 0), PopularityCold},
		{"exactly ten is cold", makeComments(10, 0, 0), PopularityCold},
		// 50 件ちょうどは熱門正面に届かず下位規則へ落ちる
		{"boundary 50 falls through", makeComments(50, 0, 0), PopularityModerate},
		{"boundary 30 falls through", makeComments(30, 0, 0), PopularityNormal},
		// 比率ちょうど 0.7 は熱門正面にならない
		{"ratio 0.7 falls through", makeComments(42, 18, 0), PopularityModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPopularity(tt.comments))
		})
	}
}

func TestClassifyPopularity_UnknownTagsCountTowardTotal(t *testing.T) {
	cs := makeComments(40, 0, 0)
	for i := 0; i < 20; i++ {
		cs = append(cs, model.Comment{Category: "?"})
	}
	// 総数 60、比率 40/60 ≈ 0.67
	assert.Equal(t, PopularityModerate, ClassifyPopularity(cs))
}
