package dom

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func doc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("failed to parse markup: %v", err)
	}
	return d
}

func TestTextCollapsesWhitespace(t *testing.T) {
	d := doc(t, `<div class="a">  第一行
		第二行   </div>`)

	if got := Text(d.Find(".a")); got != "第一行 第二行" {
		t.Errorf("got %q", got)
	}
	if got := Text(d.Find(".missing")); got != "" {
		t.Errorf("missing element should yield empty text, got %q", got)
	}
	if got := Text(nil); got != "" {
		t.Errorf("nil selection should yield empty text, got %q", got)
	}
}

func TestNodeText(t *testing.T) {
	d := doc(t, `<p>外层<span>内层</span>文本</p>`)
	p := d.Find("p")
	if len(p.Nodes) == 0 {
		t.Fatal("no node")
	}
	if got := NodeText(p.Nodes[0]); got != "外层内层文本" {
		t.Errorf("got %q", got)
	}
}

func TestAttrOr(t *testing.T) {
	d := doc(t, `<a class="x" href="/here">链接</a>`)

	if got := AttrOr(d.Find(".x"), "href", "none"); got != "/here" {
		t.Errorf("got %q", got)
	}
	if got := AttrOr(d.Find(".x"), "title", "none"); got != "none" {
		t.Errorf("missing attribute should fall back, got %q", got)
	}
	if got := AttrOr(d.Find(".missing"), "href", "none"); got != "none" {
		t.Errorf("empty selection should fall back, got %q", got)
	}
}

func TestCascade(t *testing.T) {
	d := doc(t, `
		<div class="root">
			<div class="empty"></div>
			<div class="filled">有内容</div>
		</div>`)
	root := d.Find(".root")

	c := Cascade{".nope", ".filled"}
	if match := c.Find(root); match == nil || !match.HasClass("filled") {
		t.Error("cascade should fall through to the first match")
	}

	none := Cascade{".nope"}
	if none.Find(root) != nil {
		t.Error("no match should yield nil")
	}

	// Text falls through tiers whose match has no visible text.
	tiers := Cascade{".empty", ".filled"}
	if text := tiers.Text(root); text != "有内容" {
		t.Errorf("got %q", text)
	}
}
