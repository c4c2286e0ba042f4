// Package notify posts match alerts to a Slack incoming webhook using
// Block Kit payloads. A missing webhook URL disables the notifier; send
// failures are logged and discarded, never propagated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// OfferFactor suggests an opening offer as a fraction of the listed cost.
const OfferFactor = 0.87

const titleLimit = 100

// Notifier posts Block Kit messages to one webhook.
type Notifier struct {
	client     *http.Client
	webhookURL string
	log        *slog.Logger
}

// New builds a Notifier. An empty webhookURL yields a disabled notifier
// whose sends are silent no-ops.
func New(client *http.Client, webhookURL string, log *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		client:     client,
		webhookURL: webhookURL,
		log:        log.With("component", "notify"),
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Fields   []text `json:"fields,omitempty"`
	Elements []elem `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type elem struct {
	Type string `json:"type"`
	Text text   `json:"text"`
	URL  string `json:"url"`
}

func header(s string) block {
	return block{Type: "header", Text: &text{Type: "plain_text", Text: truncate(s, titleLimit)}}
}

func section(fields ...string) block {
	b := block{Type: "section"}
	for _, f := range fields {
		b.Fields = append(b.Fields, text{Type: "mrkdwn", Text: f})
	}
	return b
}

func actions(label, url string) block {
	return block{Type: "actions", Elements: []elem{{
		Type: "button",
		Text: text{Type: "plain_text", Text: label},
		URL:  url,
	}}}
}

// JewelryMatch announces a saved jewelry scrap find.
func (n *Notifier) JewelryMatch(ctx context.Context, m *model.JewelryMatch) {
	totalCost := m.ListedPrice + m.ShippingCost
	blocks := []block{
		header("💰 Scrap find: " + m.EbayTitle),
		section(
			fmt.Sprintf("*Metal:* %s %dk", m.MetalType, m.Karat),
			fmt.Sprintf("*Weight:* %.2f g", m.WeightG),
			fmt.Sprintf("*Total cost:* $%.2f", totalCost),
			fmt.Sprintf("*Melt value:* $%.2f", m.MeltValue),
			fmt.Sprintf("*Scrap profit:* $%.2f", m.ProfitScrap),
			fmt.Sprintf("*Suggested offer:* $%.2f", totalCost*OfferFactor),
		),
		actions("Open listing", m.EbayURL),
	}
	n.send(ctx, blocks)
}

// GemstoneMatch announces a saved gemstone find.
func (n *Notifier) GemstoneMatch(ctx context.Context, m *model.GemstoneMatch) {
	blocks := []block{
		header("💎 Stone find: " + m.EbayTitle),
		section(
			fmt.Sprintf("*Stone:* %s %.2fct %s", m.StoneType, m.Carat, m.Shape),
			fmt.Sprintf("*Cert:* %s", orDash(m.CertLab)),
			fmt.Sprintf("*Deal score:* %.0f", m.DealScore),
			fmt.Sprintf("*Risk score:* %.0f", m.RiskScore),
			fmt.Sprintf("*Price:* $%.2f", m.ListedPrice),
			fmt.Sprintf("*Class:* %s", m.Classification),
		),
		actions("Open listing", m.EbayURL),
	}
	n.send(ctx, blocks)
}

func (n *Notifier) send(ctx context.Context, blocks []block) {
	if !n.Enabled() {
		return
	}
	payload, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		n.log.Warn("marshal notification", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("notification send", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		n.log.Warn("notification rejected", "status", resp.StatusCode, "body", string(out))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
