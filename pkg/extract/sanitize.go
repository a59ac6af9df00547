package extract

import (
	"regexp"
	"strings"
)

// The host site embeds an inline script inside some statuses that
// builds a horizontal photo gallery at render time. Its source leaks
// into textContent, so it has to be stripped whole, including the
// 长图/小图 descriptor token that can trail the invocation.
var photoScriptPattern = regexp.MustCompile(
	`\(function\s*\(\)\s*\{(?s:.*?)CREATE_HONRIZONTAL_PHOTOS(?s:.*?)\}\s*\)\(\)\s*(?:长图|小图)?`)

// repostPrefixPattern normalizes the spacing after the repost marker.
var repostPrefixPattern = regexp.MustCompile(`转发：\s+`)

// StripPhotoScript removes embedded photo-gallery script artifacts
// from extracted text.
func StripPhotoScript(text string) string {
	return strings.TrimSpace(photoScriptPattern.ReplaceAllString(text, ""))
}

// NormalizeRepostPrefix tightens the whitespace after a 转发： prefix.
func NormalizeRepostPrefix(text string) string {
	if !strings.Contains(text, "转发：") {
		return text
	}
	return repostPrefixPattern.ReplaceAllString(text, "转发：")
}
