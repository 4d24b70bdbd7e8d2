package quote

import "encoding/json"

// Event is the typed event stream emitted by an external quote source
// (spec §6). Exactly one concrete type is ever produced per message.
type Event interface {
	isEvent()
}

// Ack is the feed's acknowledgement that a subscription request for
// rfqID was accepted.
type Ack struct{ RFQID string }

// QuoteUpdated carries a fresh Quote for the subscribed pair.
type QuoteUpdated struct{ Quote Quote }

// NoQuote signals the feed currently has nothing to offer for the pair.
type NoQuote struct{}

// KeepAlive is a transport-level heartbeat, carrying no market data.
type KeepAlive struct{}

// Unsubscribed signals a subscription ended, optionally naming which one.
type Unsubscribed struct{ RFQID *string }

// Unknown carries the raw JSON of the inner event object (params.result.event)
// whose type this version of the decoder does not recognize.
type Unknown struct{ Raw json.RawMessage }

func (Ack) isEvent()          {}
func (QuoteUpdated) isEvent() {}
func (NoQuote) isEvent()      {}
func (KeepAlive) isEvent()    {}
func (Unsubscribed) isEvent() {}
func (Unknown) isEvent()      {}
