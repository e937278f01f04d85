package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("memexporter/browser")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// the target detects automation via navigator.webdriver, mask it
// before any page script runs
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => false });
window.chrome = window.chrome || { runtime: {} };
`

type ChromeOptions struct {
	// show the browser window. login is interactive, so exports
	// generally run headed.
	Headed    bool
	UserAgent string
	// per-operation timeout, defaults to 15s
	OpTimeout time.Duration
}

// ChromePage drives one chromedp browser tab. It owns the captured
// response buffer for the lifetime of one target's processing.
type ChromePage struct {
	ctx       context.Context
	opTimeout time.Duration

	mu         sync.Mutex
	pending    map[network.RequestID]Response
	responses  []Response
	currentURL string
}

type chromeElement struct {
	node *cdp.Node
	text string
}

func (e *chromeElement) Text() string { return e.text }

func (e *chromeElement) Attr(name string) string {
	return e.node.AttributeValue(name)
}

// NewChromePage launches a browser tab and starts capturing network
// responses. The returned cleanup closes the browser.
func NewChromePage(ctx context.Context, opts ChromeOptions) (*ChromePage, func(), error) {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.OpTimeout == 0 {
		opts.OpTimeout = time.Second * 15
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Headed),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	p := &ChromePage{
		ctx:       tabCtx,
		opTimeout: opts.OpTimeout,
		pending:   map[network.RequestID]Response{},
	}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}

	chromedp.ListenTarget(tabCtx, p.handleNetworkEvent)

	return p, cancel, nil
}

func (p *ChromePage) handleNetworkEvent(ev any) {
	switch ev := ev.(type) {
	case *network.EventResponseReceived:
		if ev.Response == nil || !ShouldCapture(ev.Response.URL) {
			return
		}
		p.mu.Lock()
		p.pending[ev.RequestID] = Response{
			URL:         ev.Response.URL,
			Status:      int(ev.Response.Status),
			ContentType: ev.Response.MimeType,
		}
		p.mu.Unlock()
	case *network.EventLoadingFinished:
		p.mu.Lock()
		res, ok := p.pending[ev.RequestID]
		delete(p.pending, ev.RequestID)
		p.mu.Unlock()
		if !ok {
			return
		}
		if !DecodableContentType(res.ContentType) {
			p.appendResponse(res)
			return
		}
		// body fetches must go through the tab's executor, and the
		// listener callback must not block on it
		go p.fetchBody(ev.RequestID, res)
	}
}

func (p *ChromePage) fetchBody(id network.RequestID, res Response) {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(p.ctx, c.Target))
	if err != nil {
		// bodies are evicted by the browser once the page moves on,
		// a miss here just means the dom strategies get their turn
		slog.Debug("response body unavailable", "url", res.URL, "err", err)
	} else {
		res.Body = body
	}
	p.appendResponse(res)
}

func (p *ChromePage) appendResponse(res Response) {
	p.mu.Lock()
	p.responses = append(p.responses, res)
	p.mu.Unlock()
}

func (p *ChromePage) Responses() []Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Response, len(p.responses))
	copy(out, p.responses)
	return out
}

func (p *ChromePage) ClearResponses() {
	p.mu.Lock()
	p.responses = nil
	p.mu.Unlock()
}

func (p *ChromePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL
}

func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	// operations run on the tab's context but respect both the
	// caller's cancellation and the bounded op timeout
	opCtx, cancel := context.WithTimeout(p.ctx, p.opTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(opCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "page:Navigate")
	defer span.End()

	err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	var current string
	locErr := p.run(ctx, chromedp.Location(&current))
	if locErr == nil {
		p.mu.Lock()
		p.currentURL = current
		p.mu.Unlock()
	}
	return nil
}

func (p *ChromePage) HTML(ctx context.Context) (string, error) {
	var out string
	err := p.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return out, nil
}

func (p *ChromePage) Text(ctx context.Context) (string, error) {
	var out string
	err := p.run(ctx, chromedp.Text("body", &out, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return out, nil
}

func xpathTextContains(value string) string {
	// xpath string literals have no escape syntax, apostrophes in the
	// probe text would truncate the query
	value = strings.ReplaceAll(value, "'", "")
	return fmt.Sprintf(`//*[contains(normalize-space(.), '%s')]`, value)
}

func (p *ChromePage) Find(ctx context.Context, sel Selector) ([]Element, error) {
	ctx, span := tracer.Start(ctx, "page:Find")
	defer span.End()

	var nodes []*cdp.Node
	var action chromedp.Action
	if sel.Kind == KindTextContains {
		action = chromedp.Nodes(xpathTextContains(sel.Value), &nodes, chromedp.BySearch, chromedp.AtLeast(0))
	} else {
		css := sel.CSS()
		if css == "" {
			return nil, fmt.Errorf("selector %q has no queryable form", sel.Name)
		}
		action = chromedp.Nodes(css, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))
	}

	err := p.run(ctx, action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "node query failed")
		return nil, fmt.Errorf("find %q: %w", sel.Name, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		text := p.nodeText(ctx, node)
		elements = append(elements, &chromeElement{node: node, text: text})
	}
	return elements, nil
}

func (p *ChromePage) nodeText(ctx context.Context, node *cdp.Node) string {
	var outer string
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		outer, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outer))
	if err != nil {
		return ""
	}
	return doc.Text()
}

func (p *ChromePage) Click(ctx context.Context, el Element) error {
	ctx, span := tracer.Start(ctx, "page:Click")
	defer span.End()

	handle, ok := el.(*chromeElement)
	if !ok {
		return fmt.Errorf("element does not belong to this page")
	}
	err := p.run(ctx, chromedp.MouseClickNode(handle.node))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click failed")
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (p *ChromePage) Evaluate(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	err := p.run(ctx, chromedp.Evaluate(script, out))
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
