// Package providers implements the Binance market data transports. Each
// transport produces finalised 1-minute bars and pushes them to a handler
// supplied by the streaming supervisor.
package providers

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradingcopilot/market-core/pkg/types"
)

// ErrUnavailable is returned by the WebSocket client in fail-fast mode after
// repeated consecutive handshake failures. The supervisor matches on it to
// decide the one-shot REST fallback.
var ErrUnavailable = errors.New("binance websocket unavailable")

// BarHandler receives finalised 1m bars from a transport. Implementations
// may block; producers stop pushing once their context is cancelled.
type BarHandler func(types.Bar)

// parsePrice converts an exchange decimal string into a float64. Binance
// sends prices as strings; going through decimal avoids locale and exponent
// surprises in strconv paths.
func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
