package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"memexporter/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Probe does a cheap reachability check before any browser time is
// spent on a target. The target blocks plain HTTP clients for real
// content, so this only verifies that the host answers at all; any
// response, including a bot-wall, counts as reachable.
type Probe struct {
	http *resty.Client
}

func NewProbe() *Probe {
	client := resty.New()
	client.SetHeader("user-agent", defaultUserAgent)
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "memexporter/probe")
	return &Probe{http: client}
}

func (p *Probe) Check(ctx context.Context, url string) error {
	res, err := p.http.R().
		SetContext(ctx).
		Head(url)
	if err != nil {
		return fmt.Errorf("target unreachable: %w", err)
	}
	slog.Debug("probed target", "url", url, "status", res.StatusCode())
	return nil
}
