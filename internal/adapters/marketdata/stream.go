package marketdata

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// tickBufferLimit bounds how many ticks StreamBookProvider retains per
// token — CAP evaluation only ever looks back to a trade's confirm_ts,
// which is at most one window's worth of history (spec §4.6).
const tickBufferLimit = 4096

// StreamBookProvider implements ports.BookProvider by subscribing to a
// push feed of order-book price ticks instead of polling
// /prices-history per trade. Grounded on the pack's generic reconnecting
// websocket clients (phenomenon0-polymarket-agents/pkg/wss/client.go's
// State/reconnect-with-backoff shape, RohanRaikwar-algo-sys-v1's
// smartconnect/websocket.go subscribe-and-dispatch loop), trimmed to
// exactly what price_ticks(token_id, from, to) needs: a per-token,
// time-ordered ring of recent ticks that PriceTicks filters by range.
type StreamBookProvider struct {
	url string

	mu  sync.Mutex
	buf map[string][]domain.PriceTick
}

// NewStreamBookProvider builds a provider that will connect to url when
// Run is called. It is safe to call PriceTicks before Run connects —
// the CAP evaluator treats an empty result as "no ticks yet", not an
// error (spec §7 data absence).
func NewStreamBookProvider(url string) *StreamBookProvider {
	return &StreamBookProvider{
		url: url,
		buf: make(map[string][]domain.PriceTick),
	}
}

// tickMessage is the feed's wire shape: one price update per token.
type tickMessage struct {
	TokenID string  `json:"token_id"`
	TS      int64   `json:"ts"`
	Price   float64 `json:"price"`
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled, appending every decoded tick to its token's buffer.
func (s *StreamBookProvider) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connectAndRead(ctx); err != nil {
			slog.Warn("marketdata: book tick stream disconnected, reconnecting", "err", err, "backoff", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *StreamBookProvider) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	slog.Info("marketdata: book tick stream connected", "url", s.url)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg tickMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("marketdata: book tick stream: decode", "err", err)
			continue
		}
		s.append(msg)
	}
}

func (s *StreamBookProvider) append(msg tickMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticks := s.buf[msg.TokenID]
	ticks = append(ticks, domain.PriceTick{TS: msg.TS, Price: decimal.NewFromFloat(msg.Price)})
	if len(ticks) > tickBufferLimit {
		ticks = ticks[len(ticks)-tickBufferLimit:]
	}
	s.buf[msg.TokenID] = ticks
}

// PriceTicks implements ports.BookProvider against the in-memory
// buffer accumulated by Run. Ticks are returned sorted by timestamp;
// the sort is stable, so ticks sharing a timestamp keep the order the
// feed delivered them in (spec §4.6 "ties and duplicate timestamps
// retain insertion order").
func (s *StreamBookProvider) PriceTicks(_ context.Context, tokenID string, from, to int64) ([]domain.PriceTick, error) {
	s.mu.Lock()
	ticks := append([]domain.PriceTick(nil), s.buf[tokenID]...)
	s.mu.Unlock()

	out := ticks[:0:0]
	for _, t := range ticks {
		if t.TS >= from && t.TS <= to {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out, nil
}
