package memexport

import (
	"context"
	"fmt"
	"strings"

	"memexporter/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// fakeView is one paginated page-view served by the fake driver.
type fakeView struct {
	html      string
	responses []browser.Response
}

// fakePage implements browser.Page over fixture html so controller
// and exporter behavior can be exercised without a browser.
type fakePage struct {
	views []fakeView
	idx   int
	// advancing to this 1-based page index (or beyond) always fails,
	// 0 disables
	failAdvanceTo int
	// the first n next-clicks fail, later ones succeed
	flakyClicks int
	url         string
	cleared     map[int]bool
	// page indices in visit order, recorded at snapshot time
	htmlReads []int
	navigates []string
}

func newFakePage(views ...fakeView) *fakePage {
	return &fakePage{views: views, cleared: map[int]bool{}}
}

func (p *fakePage) doc() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.views[p.idx].html))
	if err != nil {
		panic(err)
	}
	return doc
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.url = url
	p.idx = 0
	p.navigates = append(p.navigates, url)
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.htmlReads = append(p.htmlReads, p.idx+1)
	return p.views[p.idx].html, nil
}

func (p *fakePage) Text(ctx context.Context) (string, error) {
	return p.doc().Find("body").Text(), nil
}

type fakeElement struct {
	sel *goquery.Selection
}

func (e *fakeElement) Text() string { return e.sel.Text() }

func (e *fakeElement) Attr(name string) string { return e.sel.AttrOr(name, "") }

func (p *fakePage) Find(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	doc := p.doc()
	var matches *goquery.Selection
	if sel.Kind == browser.KindTextContains {
		matches = doc.Find("a, button, span, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), sel.Value)
		})
	} else {
		matches = doc.Find(sel.CSS())
	}

	var elements []browser.Element
	matches.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &fakeElement{sel: s})
	})
	return elements, nil
}

func (p *fakePage) Click(ctx context.Context, el browser.Element) error {
	handle, ok := el.(*fakeElement)
	if !ok {
		return fmt.Errorf("foreign element")
	}
	label := strings.ToLower(handle.Attr("aria-label"))
	text := strings.TrimSpace(handle.Text())
	isNext := strings.Contains(label, "next") || text == "›"
	if !isNext {
		return nil
	}

	targetPage := p.idx + 2
	if p.failAdvanceTo != 0 && targetPage >= p.failAdvanceTo {
		return fmt.Errorf("click intercepted by overlay")
	}
	if p.flakyClicks > 0 {
		p.flakyClicks--
		return fmt.Errorf("stale element reference")
	}
	if p.idx+1 < len(p.views) {
		p.idx++
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out any) error {
	if v, ok := out.(*int); ok && strings.Contains(script, "scrollHeight") {
		*v = 1000
	}
	return nil
}

func (p *fakePage) Responses() []browser.Response {
	if p.cleared[p.idx] {
		return nil
	}
	return p.views[p.idx].responses
}

func (p *fakePage) ClearResponses() {
	p.cleared[p.idx] = true
}

func (p *fakePage) URL() string { return p.url }

// viewHTML renders a fixture page with memory cards and a pagination
// footer.
func viewHTML(current, total int, contents ...string) string {
	var cards strings.Builder
	for _, content := range contents {
		fmt.Fprintf(&cards, `
			<div class="memory-card_h4x">
				<span class="label_a1">Automatic memory</span>
				<p class="content_b2">%s</p>
				<time class="date_c3">01/02/2024</time>
			</div>`, content)
	}
	return fmt.Sprintf(`<html><body>
		<div class="MemoryList_x9">%s</div>
		<div class="pagination_z8">
			Page %d of %d
			<button aria-label="Previous page">‹</button>
			<button aria-label="Next page">›</button>
		</div>
	</body></html>`, cards.String(), current, total)
}

func emptyViewHTML(current, total int) string {
	return fmt.Sprintf(`<html><body>
		<div class="MemoryList_x9"></div>
		<div class="pagination_z8">
			Page %d of %d
			<button aria-label="Previous page">‹</button>
			<button aria-label="Next page">›</button>
		</div>
	</body></html>`, current, total)
}
