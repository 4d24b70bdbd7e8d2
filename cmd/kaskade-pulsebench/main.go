// Command kaskade-pulsebench replays a JSON file of historical quotes
// through the pulse engines and prints a warm-up/validity timeline, useful
// for tuning warm-up thresholds offline.
//
// Usage:
//
//	kaskade-pulsebench -in quotes.json -max-age-ms 60000 -scope market
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/0xphen/kaskade/internal/pulse"
	"github.com/0xphen/kaskade/internal/quote"
)

// replayChunk mirrors quote.RouteChunk with JSON tags for the replay file
// format; kaskade-pulsebench never touches the live wire envelope.
type replayChunk struct {
	ProtocolTag string  `json:"protocol_tag"`
	InputAmount float64 `json:"input_amount"`
}

type replayRoute struct {
	Chunks []replayChunk `json:"chunks"`
}

type replayQuote struct {
	TsMs                   uint64        `json:"ts_ms"`
	BidUnits               float64       `json:"bid_units"`
	AskUnits               float64       `json:"ask_units"`
	HasSwapParams          bool          `json:"has_swap_params"`
	MinAskUnits            float64       `json:"min_ask_units"`
	TopLevelInputTotal     float64       `json:"top_level_input_total"`
	ResolverRecommendedBps float64       `json:"resolver_recommended_bps"`
	Routes                 []replayRoute `json:"routes"`
}

func main() {
	inPath := flag.String("in", "", "path to a JSON array of replay quotes")
	maxAgeMs := flag.Uint64("max-age-ms", 60_000, "pulse window max age, milliseconds")
	scopeFlag := flag.String("scope", "market", "pulse scope: market or protocol")
	protocol := flag.String("protocol", "", "protocol tag, required when -scope=protocol")
	flag.Parse()

	if *inPath == "" {
		exitf("missing -in <file.json>")
	}

	scope := quote.ExecutionScope{Kind: quote.MarketWide}
	switch *scopeFlag {
	case "market":
	case "protocol":
		if *protocol == "" {
			exitf("-scope=protocol requires -protocol")
		}
		scope = quote.ExecutionScope{Kind: quote.ProtocolOnly, Protocol: *protocol}
	default:
		exitf("unknown -scope %q (want market or protocol)", *scopeFlag)
	}

	quotes, err := loadReplayFile(*inPath)
	if err != nil {
		exitf("load replay file: %v", err)
	}

	engine := pulse.NewPairEngine(*maxAgeMs, scope)

	fmt.Printf("%-14s  %-18s  %-18s  %-18s  %-18s\n", "TS_MS", "SPREAD", "TREND", "DEPTH", "SLIPPAGE")
	for _, q := range quotes {
		snap := engine.Evaluate(toQuote(q))
		fmt.Printf("%-14d  %-18s  %-18s  %-18s  %-18s\n",
			snap.TsMs,
			formatResult(snap.Spread.Validity, snap.Spread.Bps),
			formatResult(snap.Trend.Validity, snap.Trend.Bps),
			formatDepth(snap.Depth),
			formatResult(snap.Slippage.Validity, snap.Slippage.Bps),
		)
	}
}

func loadReplayFile(path string) ([]replayQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var quotes []replayQuote
	if err := json.NewDecoder(f).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return quotes, nil
}

func toQuote(q replayQuote) quote.Quote {
	routes := make([]quote.Route, 0, len(q.Routes))
	for _, r := range q.Routes {
		chunks := make([]quote.RouteChunk, 0, len(r.Chunks))
		for _, c := range r.Chunks {
			chunks = append(chunks, quote.RouteChunk{ProtocolTag: c.ProtocolTag, InputAmount: c.InputAmount})
		}
		routes = append(routes, quote.Route{Chunks: chunks})
	}
	return quote.Quote{
		TsMs:                   q.TsMs,
		BidUnits:               q.BidUnits,
		AskUnits:               q.AskUnits,
		HasSwapParams:          q.HasSwapParams,
		MinAskUnits:            q.MinAskUnits,
		TopLevelInputTotal:     q.TopLevelInputTotal,
		Routes:                 routes,
		ResolverRecommendedBps: q.ResolverRecommendedBps,
	}
}

func formatResult(v pulse.Validity, bps float64) string {
	if v == pulse.Invalid {
		return "invalid"
	}
	return fmt.Sprintf("valid bps=%.2f", bps)
}

func formatDepth(d pulse.DepthResult) string {
	if d.Validity == pulse.Invalid {
		return "invalid"
	}
	return fmt.Sprintf("valid depth=%.2f", d.DepthNow)
}

func exitf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "kaskade-pulsebench: "+format+"\n", a...)
	os.Exit(1)
}
