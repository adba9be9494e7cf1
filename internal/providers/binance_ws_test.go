package providers

import (
	"testing"
	"time"
)

func TestParseKlineMessageFinalBar(t *testing.T) {
	msg := []byte(`{
		"e": "kline", "E": 1700000123456, "s": "BTCUSDT",
		"k": {
			"t": 1700000100000, "T": 1700000159999, "s": "BTCUSDT", "i": "1m",
			"o": "42000.10", "c": "42010.55", "h": "42020.00", "l": "41995.00",
			"v": "12.345", "x": true
		}
	}`)

	bar, ok, err := ParseKlineMessage(msg)
	if err != nil {
		t.Fatalf("ParseKlineMessage failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a bar from a closed kline")
	}
	if bar.Symbol != "BTCUSDT" || bar.Interval != "1m" {
		t.Errorf("bar identity = %s/%s", bar.Symbol, bar.Interval)
	}
	if bar.Ts != 1700000100 {
		t.Errorf("ts = %d, want 1700000100", bar.Ts)
	}
	if bar.Open != 42000.10 || bar.Close != 42010.55 || bar.High != 42020.0 || bar.Low != 41995.0 {
		t.Errorf("OHLC mismatch: %+v", bar)
	}
	if bar.Volume != 12.345 {
		t.Errorf("volume = %v, want 12.345", bar.Volume)
	}
}

func TestParseKlineMessageSkipsOpenKline(t *testing.T) {
	msg := []byte(`{"e":"kline","s":"BTCUSDT","k":{"t":1700000100000,"s":"BTCUSDT","i":"1m","o":"1","c":"2","h":"3","l":"0.5","v":"9","x":false}}`)

	_, ok, err := ParseKlineMessage(msg)
	if err != nil {
		t.Fatalf("ParseKlineMessage failed: %v", err)
	}
	if ok {
		t.Error("open kline must not produce a bar")
	}
}

func TestParseKlineMessageCombinedStream(t *testing.T) {
	msg := []byte(`{"stream":"ethusdt@kline_1m","data":{"e":"kline","s":"ETHUSDT","k":{"t":1700000160000,"s":"ETHUSDT","i":"1m","o":"2200","c":"2201","h":"2202","l":"2199","v":"3","x":true}}}`)

	bar, ok, err := ParseKlineMessage(msg)
	if err != nil {
		t.Fatalf("ParseKlineMessage failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a bar from combined stream frame")
	}
	if bar.Symbol != "ETHUSDT" || bar.Ts != 1700000160 {
		t.Errorf("bar = %+v", bar)
	}
}

func TestParseKlineMessageIgnoresOtherEvents(t *testing.T) {
	_, ok, err := ParseKlineMessage([]byte(`{"e":"24hrTicker","s":"BTCUSDT"}`))
	if err != nil {
		t.Fatalf("ParseKlineMessage failed: %v", err)
	}
	if ok {
		t.Error("non-kline events must not produce bars")
	}
}

func TestParseKlineMessageMalformed(t *testing.T) {
	if _, _, err := ParseKlineMessage([]byte(`{nope`)); err == nil {
		t.Error("malformed JSON should error")
	}
	bad := []byte(`{"e":"kline","s":"BTCUSDT","k":{"t":1,"o":"abc","c":"2","h":"3","l":"0","v":"1","x":true}}`)
	if _, _, err := ParseKlineMessage(bad); err == nil {
		t.Error("unparseable price should error")
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 1; attempt <= 20; attempt++ {
		d := backoffDelay(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: non-positive delay %v", attempt, d)
		}
		if d > wsMaxRetryDelay {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, d, wsMaxRetryDelay)
		}
	}
	// Early attempts stay near 2^attempt.
	if d := backoffDelay(1); d > 3*time.Second {
		t.Errorf("attempt 1 delay %v too large", d)
	}
}
