package quote

import (
	"encoding/json"
	"fmt"
)

// envelope mirrors the JSON-RPC-shaped wire message described in spec §6:
// event notifications carry method=="event" and a nested
// params.result.event object; the initial subscription acknowledgement is
// a top-level "result" with no "params" at all.
type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
}

type paramsResult struct {
	Result struct {
		Event json.RawMessage `json:"event"`
	} `json:"result"`
}

type eventHeader struct {
	Type string `json:"type"`
}

type wireQuote struct {
	TsMs                   uint64      `json:"ts_ms"`
	BidUnits               float64     `json:"bid_units"`
	AskUnits               float64     `json:"ask_units"`
	HasSwapParams          bool        `json:"has_swap_params"`
	MinAskUnits            float64     `json:"min_ask_units"`
	TopLevelInputTotal     float64     `json:"top_level_input_total"`
	ResolverRecommendedBps float64     `json:"resolver_recommended_bps"`
	Routes                 []wireRoute `json:"routes"`
}

type wireRoute struct {
	Chunks []wireChunk `json:"chunks"`
}

type wireChunk struct {
	ProtocolTag string  `json:"protocol_tag"`
	InputAmount float64 `json:"input_amount"`
}

type wireAck struct {
	RFQID string `json:"rfq_id"`
}

type wireUnsubscribed struct {
	RFQID *string `json:"rfq_id"`
}

// Decode parses one raw feed message into an Event. Malformed JSON is
// returned as an error; a message that is a bare subscription
// acknowledgement (no "params") decodes to (nil, nil) — callers must
// treat a nil, nil result as "skip this message", not as an error.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("quote: malformed envelope: %w", err)
	}

	if len(env.Params) == 0 {
		// initial subscription ack, or any other params-less message: skip
		return nil, nil
	}

	var pr paramsResult
	if err := json.Unmarshal(env.Params, &pr); err != nil {
		return nil, fmt.Errorf("quote: malformed params: %w", err)
	}
	if len(pr.Result.Event) == 0 {
		return nil, nil
	}

	var hdr eventHeader
	if err := json.Unmarshal(pr.Result.Event, &hdr); err != nil {
		return nil, fmt.Errorf("quote: malformed event header: %w", err)
	}

	switch hdr.Type {
	case "ack":
		var a wireAck
		if err := json.Unmarshal(pr.Result.Event, &a); err != nil {
			return nil, fmt.Errorf("quote: malformed ack: %w", err)
		}
		return Ack{RFQID: a.RFQID}, nil
	case "quote":
		var q wireQuote
		if err := json.Unmarshal(pr.Result.Event, &q); err != nil {
			return nil, fmt.Errorf("quote: malformed quote: %w", err)
		}
		return QuoteUpdated{Quote: toQuote(q)}, nil
	case "no_quote":
		return NoQuote{}, nil
	case "keep_alive":
		return KeepAlive{}, nil
	case "unsubscribed":
		var u wireUnsubscribed
		if err := json.Unmarshal(pr.Result.Event, &u); err != nil {
			return nil, fmt.Errorf("quote: malformed unsubscribed: %w", err)
		}
		return Unsubscribed{RFQID: u.RFQID}, nil
	default:
		return Unknown{Raw: append(json.RawMessage(nil), pr.Result.Event...)}, nil
	}
}

func toQuote(w wireQuote) Quote {
	routes := make([]Route, 0, len(w.Routes))
	for _, wr := range w.Routes {
		chunks := make([]RouteChunk, 0, len(wr.Chunks))
		for _, wc := range wr.Chunks {
			chunks = append(chunks, RouteChunk{ProtocolTag: wc.ProtocolTag, InputAmount: wc.InputAmount})
		}
		routes = append(routes, Route{Chunks: chunks})
	}
	return Quote{
		TsMs:                   w.TsMs,
		BidUnits:                w.BidUnits,
		AskUnits:                w.AskUnits,
		HasSwapParams:           w.HasSwapParams,
		MinAskUnits:             w.MinAskUnits,
		TopLevelInputTotal:      w.TopLevelInputTotal,
		ResolverRecommendedBps:  w.ResolverRecommendedBps,
		Routes:                  routes,
	}
}
