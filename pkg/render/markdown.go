// Package render serializes a page's normalized statuses to the
// Markdown backup document. Rendering is deterministic: the same
// status sequence, display name and generation date always produce
// byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"statusbak/pkg/models"
)

// cardLabelRule picks the card label from the status type tag or a
// substring of the body text. Rules are evaluated in order.
type cardLabelRule struct {
	statusType string
	textMark   string
	label      string
}

var cardLabelRules = []cardLabelRule{
	{statusType: "movie", textMark: "看过", label: "电影"},
	{statusType: "book", textMark: "读过", label: "图书"},
	{textMark: "分享电视剧", label: "电视剧"},
	{textMark: "分享网页", label: "网页"},
}

const defaultCardLabel = "推荐"

// cardLabel resolves the label for a card attached to a status.
func cardLabel(status *models.Status) string {
	for _, rule := range cardLabelRules {
		if rule.statusType != "" && status.Type == rule.statusType {
			return rule.label
		}
		if rule.textMark != "" && strings.Contains(status.Text, rule.textMark) {
			return rule.label
		}
	}
	return defaultCardLabel
}

// Renderer builds the Markdown backup document for one page.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the full backup document for a page's statuses.
// generatedAt is the only time-dependent input; it appears in the
// header's backup-date line and nowhere else.
func (r *Renderer) Render(statuses []models.Status, userName string, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1(fmt.Sprintf("豆瓣用户 %s 的广播备份", userName))
	md.PlainText("")
	md.PlainText(fmt.Sprintf("*备份时间：%s*", generatedAt.Format("2006-01-02")))
	md.PlainText("")
	md.PlainText(fmt.Sprintf("*共备份 %d 条广播*", len(statuses)))
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")

	for i := range statuses {
		r.renderStatus(md, &statuses[i])
	}

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to build markdown: %w", err)
	}
	return buf.String(), nil
}

// field emits one bold-labelled line followed by a blank line.
func field(md *markdown.Markdown, label, value string) {
	md.PlainText(fmt.Sprintf("**%s**：%s", label, value))
	md.PlainText("")
}

func authorRef(a models.Author) string {
	return fmt.Sprintf("[%s](%s) (@%s)", a.Name, a.Link, a.UID)
}

// renderStatus emits one status section. The section order is fixed;
// exactly one horizontal rule terminates it.
func (r *Renderer) renderStatus(md *markdown.Markdown, status *models.Status) {
	md.H2(fmt.Sprintf("广播 %s", status.ID))
	md.PlainText("")

	if status.FullTime != "" {
		field(md, "时间", status.FullTime)
	} else {
		field(md, "时间", status.CreateTime)
	}

	if status.OriginalURL != "" {
		field(md, "原始地址", fmt.Sprintf("[%s](%s)", status.OriginalURL, status.OriginalURL))
	}

	if status.Type != "" {
		field(md, "类型", status.Type)
	}

	if status.Author.Name != "" {
		line := authorRef(status.Author)
		if status.Activity != "" {
			line += " " + status.Activity
		}
		if status.Rating != "" {
			line += fmt.Sprintf(" **评分**：%s", status.Rating)
		}
		field(md, "动态", line)
	}

	if status.Text != "" {
		field(md, "内容", status.Text)
	}

	if status.Topic != nil {
		field(md, "话题", fmt.Sprintf("[%s](%s)", status.Topic.Title, status.Topic.URL))
	}

	if status.Card != nil {
		field(md, cardLabel(status), fmt.Sprintf("[%s](%s)", status.Card.Title, status.Card.URL))
		if status.Card.Description != "" {
			field(md, "描述", status.Card.Description)
		}
	}

	if len(status.Images) > 0 {
		md.PlainText("**图片**：")
		md.PlainText("")
		for _, img := range status.Images {
			md.PlainText(fmt.Sprintf("![%s](%s)", img.Alt, img.Large))
			md.PlainText("")
		}
	}

	if status.Reshared != nil {
		r.renderReshared(md, status.Reshared)
	}

	field(md, "互动", fmt.Sprintf("%d 人赞 · %d 条回应", status.LikeCount, status.CommentCount))

	if len(status.Comments) > 0 {
		md.PlainText("**回应**：")
		md.PlainText("")
		for i, comment := range status.Comments {
			if comment.IsSystem() {
				md.PlainText(fmt.Sprintf("%d. **%s**: %s", i+1, comment.Author.Name, comment.Content))
				continue
			}
			md.PlainText(fmt.Sprintf("%d. **[%s](%s)** (@%s): %s",
				i+1, comment.Author.Name, comment.Author.Link, comment.Author.UID, comment.Content))
		}
		md.PlainText("")
	} else if status.CommentCount > 0 {
		field(md, "回应", fmt.Sprintf("共 %d 条", status.CommentCount))
	}

	md.HorizontalRule()
	md.PlainText("")
}

// renderReshared emits the nested original as a blockquote section.
// The "> " prefixes are written out explicitly so image and card
// lines keep the same cadence as the author and content lines.
func (r *Renderer) renderReshared(md *markdown.Markdown, reshared *models.Reshared) {
	md.PlainText("**转发内容**：")
	md.PlainText("")
	md.PlainText(fmt.Sprintf("> **原作者**：%s", authorRef(reshared.Author)))
	md.PlainText(">")
	md.PlainText(fmt.Sprintf("> **内容**：%s", reshared.Text))
	md.PlainText(">")

	if len(reshared.Images) > 0 {
		md.PlainText("> **图片**：")
		md.PlainText(">")
		for _, img := range reshared.Images {
			md.PlainText(fmt.Sprintf("> ![%s](%s)", img.Alt, img.Large))
			md.PlainText(">")
		}
	}

	if reshared.Card != nil {
		md.PlainText(fmt.Sprintf("> **推荐**：[%s](%s)", reshared.Card.Title, reshared.Card.URL))
		md.PlainText(">")
		if reshared.Card.Description != "" {
			md.PlainText(fmt.Sprintf("> **描述**：%s", reshared.Card.Description))
			md.PlainText(">")
		}
	}
	md.PlainText("")
}
