package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/native/liquidity"
	"github.com/uxuyconnect/gmx-interface/services/quoted/marketdata"
)

// TokenView describes one token of a market.
type TokenView struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	MinPrice string `json:"minPrice"`
	MaxPrice string `json:"maxPrice"`
	// Display prices are USD per whole token.
	DisplayMinPrice string `json:"displayMinPrice"`
	DisplayMaxPrice string `json:"displayMaxPrice"`
}

// MarketView summarises a market from the active snapshot.
type MarketView struct {
	MarketToken     TokenView `json:"marketToken"`
	LongToken       TokenView `json:"longToken"`
	ShortToken      TokenView `json:"shortToken"`
	LongPoolAmount  string    `json:"longPoolAmount"`
	ShortPoolAmount string    `json:"shortPoolAmount"`
	PoolValueUsd    string    `json:"poolValueUsd"`
	TotalSupply     string    `json:"totalSupply"`

	SwapFeeFactorForPositiveImpact string `json:"swapFeeFactorForPositiveImpact,omitempty"`
	SwapFeeFactorForNegativeImpact string `json:"swapFeeFactorForNegativeImpact,omitempty"`
	SwapImpactFactorPositive       string `json:"swapImpactFactorPositive,omitempty"`
	SwapImpactFactorNegative       string `json:"swapImpactFactorNegative,omitempty"`
	SwapImpactExponentFactor       string `json:"swapImpactExponentFactor,omitempty"`
}

// MarketsResponse lists every market in the active snapshot.
type MarketsResponse struct {
	SnapshotDigest     string       `json:"snapshotDigest"`
	Source             string       `json:"source"`
	PriceStatus        string       `json:"priceStatus"`
	SnapshotAgeSeconds uint32       `json:"snapshotAgeSeconds"`
	Markets            []MarketView `json:"markets"`
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	state, err := s.markets.Latest()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := MarketsResponse{
		SnapshotDigest:     state.Snapshot.Digest,
		Source:             state.Snapshot.Source,
		PriceStatus:        string(state.Assessment.Status),
		SnapshotAgeSeconds: state.Assessment.AgeSeconds,
		Markets:            []MarketView{},
	}
	for _, addr := range state.Snapshot.Markets() {
		market, err := state.Snapshot.Market(addr)
		if err != nil {
			continue
		}
		resp.Markets = append(resp.Markets, marketView(market, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := s.markets.Latest()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	market, err := state.Snapshot.Market(addr)
	if errors.Is(err, marketdata.ErrUnknownMarket) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, marketView(market, true))
}

func marketView(m liquidity.MarketInfo, detailed bool) MarketView {
	view := MarketView{
		MarketToken:     tokenView(m.MarketToken),
		LongToken:       tokenView(m.LongToken),
		ShortToken:      tokenView(m.ShortToken),
		LongPoolAmount:  intString(m.LongPoolAmount),
		ShortPoolAmount: intString(m.ShortPoolAmount),
		PoolValueUsd:    pricing.FormatUsd(m.PoolValueMax, 2),
		TotalSupply:     intString(m.MarketToken.TotalSupply),
	}
	if detailed {
		view.SwapFeeFactorForPositiveImpact = intString(m.SwapFeeFactorForPositiveImpact)
		view.SwapFeeFactorForNegativeImpact = intString(m.SwapFeeFactorForNegativeImpact)
		view.SwapImpactFactorPositive = intString(m.SwapImpactFactorPositive)
		view.SwapImpactFactorNegative = intString(m.SwapImpactFactorNegative)
		view.SwapImpactExponentFactor = intString(m.SwapImpactExponentFactor)
	}
	return view
}

func tokenView(t pricing.Token) TokenView {
	return TokenView{
		Address:         t.Address.Hex(),
		Symbol:          t.Symbol,
		Decimals:        t.Decimals,
		MinPrice:        intString(t.Prices.Min),
		MaxPrice:        intString(t.Prices.Max),
		DisplayMinPrice: pricing.FormatUsd(t.Prices.Min, 4),
		DisplayMaxPrice: pricing.FormatUsd(t.Prices.Max, 4),
	}
}
