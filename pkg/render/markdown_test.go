package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusbak/pkg/models"
)

func minimalStatus() models.Status {
	return models.Status{
		ID:          "1001",
		CreateTime:  "6月1日",
		FullTime:    "2024-06-01 12:00:00",
		OriginalURL: "https://www.douban.com/people/u1/status/1001/",
		Author: models.Author{
			Name: "甲",
			UID:  "u1",
			Link: "https://www.douban.com/people/u1/",
		},
		Text: "极简的一条广播",
	}
}

func TestRenderDeterminism(t *testing.T) {
	statuses := []models.Status{minimalStatus()}
	generatedAt := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	r := NewRenderer()

	first, err := r.Render(statuses, "甲", generatedAt)
	require.NoError(t, err)
	second, err := r.Render(statuses, "甲", generatedAt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderMinimalStatusSections(t *testing.T) {
	generatedAt := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	out, err := NewRenderer().Render([]models.Status{minimalStatus()}, "甲", generatedAt)
	require.NoError(t, err)

	assert.Contains(t, out, "# 豆瓣用户 甲 的广播备份")
	assert.Contains(t, out, "*备份时间：2024-06-02*")
	assert.Contains(t, out, "*共备份 1 条广播*")
	assert.Contains(t, out, "## 广播 1001")
	assert.Contains(t, out, "**时间**：2024-06-01 12:00:00")
	assert.Contains(t, out, "**原始地址**：[https://www.douban.com/people/u1/status/1001/](https://www.douban.com/people/u1/status/1001/)")
	assert.Contains(t, out, "**动态**：[甲](https://www.douban.com/people/u1/) (@u1)")
	assert.Contains(t, out, "**内容**：极简的一条广播")
	assert.Contains(t, out, "**互动**：0 人赞 · 0 条回应")

	// One rule for the header, exactly one per status section.
	assert.Equal(t, 2, strings.Count(out, "---"))

	// No stray headers for fields the status does not have.
	assert.NotContains(t, out, "**类型**")
	assert.NotContains(t, out, "**话题**")
	assert.NotContains(t, out, "**图片**")
	assert.NotContains(t, out, "**转发内容**")
	assert.NotContains(t, out, "**回应**")
	assert.NotContains(t, out, "**描述**")
}

func TestRenderActivityAndRating(t *testing.T) {
	status := minimalStatus()
	status.Activity = "看过"
	status.Rating = "力荐"
	status.Type = "movie"
	status.Card = &models.Card{
		Title:       "某电影",
		URL:         "https://movie.douban.com/subject/1/",
		Description: "导演 / 2024",
	}

	out, err := NewRenderer().Render([]models.Status{status}, "甲", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "**动态**：[甲](https://www.douban.com/people/u1/) (@u1) 看过 **评分**：力荐")
	assert.Contains(t, out, "**电影**：[某电影](https://movie.douban.com/subject/1/)")
	assert.Contains(t, out, "**描述**：导演 / 2024")
}

func TestRenderImagesAndRepost(t *testing.T) {
	status := minimalStatus()
	status.Images = []models.Image{
		{Small: "https://img/small/p1.jpg", Large: "https://img/large/p1.jpg", Alt: "图片"},
	}
	status.Reshared = &models.Reshared{
		ID: "2002",
		Author: models.Author{
			Name: "原作者",
			UID:  "orig",
			Link: "https://www.douban.com/people/orig/",
		},
		Text: "原广播内容",
	}

	out, err := NewRenderer().Render([]models.Status{status}, "甲", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "![图片](https://img/large/p1.jpg)")
	assert.Contains(t, out, "**转发内容**：")
	assert.Contains(t, out, "> **原作者**：[原作者](https://www.douban.com/people/orig/) (@orig)")
	assert.Contains(t, out, "> **内容**：原广播内容")
}

func TestRenderComments(t *testing.T) {
	status := minimalStatus()
	status.CommentCount = 2
	status.Comments = []models.Comment{
		{Content: "同感", Author: models.Author{Name: "乙", UID: "u2", Link: "https://www.douban.com/people/u2/"}},
		{Content: "[该广播有 2 条回应，请访问原文查看]", Author: models.Author{Name: models.SystemAuthorName}},
	}

	out, err := NewRenderer().Render([]models.Status{status}, "甲", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "1. **[乙](https://www.douban.com/people/u2/)** (@u2): 同感")
	assert.Contains(t, out, "2. **系统提示**: [该广播有 2 条回应，请访问原文查看]")
}

func TestRenderCountOnlyFallback(t *testing.T) {
	status := minimalStatus()
	status.CommentCount = 7

	out, err := NewRenderer().Render([]models.Status{status}, "甲", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "**回应**：共 7 条")
}
