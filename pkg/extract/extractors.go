package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"statusbak/pkg/dom"
	"statusbak/pkg/models"
)

// Selector cascades, in priority order. First non-empty match wins.
// Kept as data rather than branching so each tier can be exercised on
// its own.
var (
	timeCascade   = dom.Cascade{".created_at", ".lnk-time"}
	authorCascade = dom.Cascade{".lnk-people", ".user-name"}
	topicCascade  = dom.Cascade{".title a", `a[href*="/topic/"]`}
	cardCascade   = dom.Cascade{".card", ".subject-card"}

	imageSelector = ".status-images img, .topic-pics img, .pics-wrapper img"
)

// activityVocabulary is the fixed set of activity verb phrases the
// host site renders inline when no dedicated activity element exists.
var activityVocabulary = []string{"看过", "读过", "在看", "想看", "想读"}

var (
	peopleUIDPattern = regexp.MustCompile(`people/([^/]+)`)
	digitsPattern    = regexp.MustCompile(`\d+`)
)

// topicDiscussionType reports whether a status type tag marks a
// group or personal topic discussion, which gets dedicated cascades.
func topicDiscussionType(statusType string) bool {
	return statusType == "group/topic" || statusType == "personal/topic"
}

// ExtractID reads the status id from the data-sid attribute, falling
// back to the element id with its "status-" prefix removed.
func ExtractID(item *goquery.Selection) string {
	if sid := item.AttrOr("data-sid", ""); sid != "" {
		return sid
	}
	return strings.TrimPrefix(item.AttrOr("id", ""), "status-")
}

// ExtractTime reads the display time, the sharing link, and the best
// available full timestamp. The full timestamp comes from the time
// element's title attribute, then from a unix data-time attribute,
// and finally falls back to the display time.
func ExtractTime(item *goquery.Selection) (createTime, fullTime, href string) {
	timeEl := timeCascade.Find(item)
	if timeEl == nil {
		return "", "", ""
	}

	createTime = dom.Text(timeEl)
	href = timeEl.AttrOr("href", "")

	if title := timeEl.AttrOr("title", ""); title != "" {
		fullTime = title
	} else if raw := timeEl.AttrOr("data-time", ""); raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fullTime = time.Unix(ts, 0).Format("2006-01-02 15:04:05")
		}
	}
	if fullTime == "" {
		fullTime = createTime
	}
	return createTime, fullTime, href
}

// ExtractAuthor reads the author of a status subtree. A missing
// author element yields the zero Author.
func ExtractAuthor(item *goquery.Selection) models.Author {
	authorEl := authorCascade.Find(item)
	if authorEl == nil {
		return models.Author{}
	}
	link := authorEl.AttrOr("href", "")
	return models.Author{
		Name: dom.Text(authorEl),
		UID:  UIDFromLink(link),
		Link: link,
	}
}

// UIDFromLink parses the user id out of a /people/<uid>/ profile URL.
func UIDFromLink(link string) string {
	if m := peopleUIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

// ExtractActivity reads the activity phrase from the dedicated
// element, or recognizes one of the fixed vocabulary phrases inside
// the status text.
func ExtractActivity(item *goquery.Selection) string {
	if activity := dom.Text(item.Find(".activity").First()); activity != "" {
		return activity
	}

	text := dom.Text(item.Find(".text").First())
	if text == "" {
		return ""
	}
	for _, phrase := range activityVocabulary {
		if strings.Contains(text, phrase) {
			return phrase
		}
	}
	return ""
}

// ExtractRating reads the free-text rating, empty when absent.
func ExtractRating(item *goquery.Selection) string {
	return dom.Text(item.Find(".rating-stars").First())
}

// ExtractTopic locates the topic reference. Topic-discussion statuses
// get a dedicated higher-priority cascade driven by the data-aid and
// data-atypecn attributes, with a constructed URL when the content
// area carries no topic link.
func ExtractTopic(item *goquery.Selection, statusType string) *models.Topic {
	if topicDiscussionType(statusType) {
		topicID := item.AttrOr("data-aid", "")
		topicKind := item.AttrOr("data-atypecn", "话题讨论")
		if topicID != "" {
			title := topicKind
			url := fmt.Sprintf("https://www.douban.com/topic/%s/", topicID)
			if link := item.Find(".content").First().Find(`a[href*="/topic/"]`).First(); link.Length() > 0 {
				url = link.AttrOr("href", url)
				if text := dom.Text(link); text != "" {
					title = text
				}
			}
			return &models.Topic{Title: title, URL: url}
		}
	}

	topicEl := topicCascade.Find(item)
	if topicEl == nil {
		return nil
	}
	title := dom.Text(topicEl)
	if title == "" {
		title = "话题讨论"
	}
	return &models.Topic{Title: title, URL: topicEl.AttrOr("href", "")}
}

// ExtractImages reads the photo list. The large URL is derived from
// the small one by a pure string substitution.
func ExtractImages(item *goquery.Selection) []models.Image {
	var images []models.Image
	item.Find(imageSelector).Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			return
		}
		alt := img.AttrOr("alt", "")
		if alt == "" {
			alt = "图片"
		}
		images = append(images, models.Image{
			Small: src,
			Large: models.LargeImageURL(src),
			Alt:   alt,
		})
	})
	return images
}

// ExtractCard reads the referenced-subject card, nil when absent.
func ExtractCard(item *goquery.Selection) *models.Card {
	cardEl := cardCascade.Find(item)
	if cardEl == nil {
		return nil
	}

	titleEl := cardEl.Find(".title a").First()
	if titleEl.Length() == 0 {
		titleEl = cardEl.Find("a").First()
	}

	card := &models.Card{
		Description: dom.Text(cardEl.Find(".card-summary").First()),
	}
	if titleEl.Length() > 0 {
		card.Title = dom.Text(titleEl)
		card.URL = titleEl.AttrOr("href", "")
	}
	return card
}

// ExtractLikeCount parses the like counter, defaulting to 0.
func ExtractLikeCount(item *goquery.Selection) int {
	return firstNumber(dom.Text(item.Find(".like-count").First()))
}

// firstNumber parses the first digit run out of a string, 0 when none.
func firstNumber(s string) int {
	if m := digitsPattern.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 0
}
