package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAckIsSkipped(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":1,"result":{"subscription":"sub-1"}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestDecodeMalformedJSONIsError(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeQuoteUpdated(t *testing.T) {
	raw := []byte(`{
		"jsonrpc":"2.0",
		"method":"event",
		"params":{"result":{"event":{
			"type":"quote",
			"ts_ms":1000,
			"bid_units":1.0,
			"ask_units":1.01,
			"has_swap_params":true,
			"min_ask_units":1.005,
			"top_level_input_total":500,
			"routes":[{"chunks":[{"protocol_tag":"curve","input_amount":300}]}]
		}}}
	}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	qu, ok := ev.(QuoteUpdated)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), qu.Quote.TsMs)
	assert.Equal(t, 1.01, qu.Quote.AskUnits)
	assert.Len(t, qu.Quote.Routes, 1)
}

func TestDecodeNoQuoteAndKeepAlive(t *testing.T) {
	noQuote := []byte(`{"method":"event","params":{"result":{"event":{"type":"no_quote"}}}}`)
	ev, err := Decode(noQuote)
	require.NoError(t, err)
	assert.IsType(t, NoQuote{}, ev)

	keepAlive := []byte(`{"method":"event","params":{"result":{"event":{"type":"keep_alive"}}}}`)
	ev, err = Decode(keepAlive)
	require.NoError(t, err)
	assert.IsType(t, KeepAlive{}, ev)
}

func TestDecodeUnsubscribed(t *testing.T) {
	raw := []byte(`{"method":"event","params":{"result":{"event":{"type":"unsubscribed","rfq_id":"abc"}}}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	u, ok := ev.(Unsubscribed)
	require.True(t, ok)
	require.NotNil(t, u.RFQID)
	assert.Equal(t, "abc", *u.RFQID)
}

func TestDecodeUnknownEventType(t *testing.T) {
	raw := []byte(`{"method":"event","params":{"result":{"event":{"type":"something_new","x":1}}}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.IsType(t, Unknown{}, ev)
}

func TestDecodeMissingParamsFieldIsSkipped(t *testing.T) {
	raw := []byte(`{"method":"event"}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, ev)
}
