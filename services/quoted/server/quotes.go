package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/native/liquidity"
	"github.com/uxuyconnect/gmx-interface/observability"
	"github.com/uxuyconnect/gmx-interface/services/quoted/marketdata"
	"github.com/uxuyconnect/gmx-interface/services/quoted/storage"
)

const (
	kindDeposit    = "deposit"
	kindWithdrawal = "withdrawal"

	maxBodyBytes = 64 << 10
)

var errBadRequest = errors.New("bad request")

// DepositQuoteRequest is the JSON body of POST /v1/quotes/deposit. Amounts
// are base-unit integer strings.
type DepositQuoteRequest struct {
	Market               string `json:"market"`
	Vault                string `json:"vault,omitempty"`
	Strategy             string `json:"strategy"`
	LongTokenAmount      string `json:"longTokenAmount,omitempty"`
	ShortTokenAmount     string `json:"shortTokenAmount,omitempty"`
	MarketTokenAmount    string `json:"marketTokenAmount,omitempty"`
	IncludeLongToken     bool   `json:"includeLongToken,omitempty"`
	IncludeShortToken    bool   `json:"includeShortToken,omitempty"`
	UIFeeFactor          string `json:"uiFeeFactor,omitempty"`
	ForShift             bool   `json:"forShift,omitempty"`
	IsMarketTokenDeposit bool   `json:"isMarketTokenDeposit,omitempty"`
}

// WithdrawalQuoteRequest is the JSON body of POST /v1/quotes/withdrawal.
type WithdrawalQuoteRequest struct {
	Market            string `json:"market"`
	Vault             string `json:"vault,omitempty"`
	Strategy          string `json:"strategy"`
	MarketTokenAmount string `json:"marketTokenAmount,omitempty"`
	LongTokenAmount   string `json:"longTokenAmount,omitempty"`
	ShortTokenAmount  string `json:"shortTokenAmount,omitempty"`
	UIFeeFactor       string `json:"uiFeeFactor,omitempty"`
	ForShift          bool   `json:"forShift,omitempty"`
}

// QuoteResponse is returned for every served quote and stored verbatim.
type QuoteResponse struct {
	ID                 string         `json:"id"`
	Kind               string         `json:"kind"`
	Strategy           string         `json:"strategy"`
	Market             string         `json:"market"`
	Vault              string         `json:"vault,omitempty"`
	SnapshotDigest     string         `json:"snapshotDigest"`
	PriceStatus        string         `json:"priceStatus"`
	SnapshotAgeSeconds uint32         `json:"snapshotAgeSeconds"`
	Amounts            AmountsBody    `json:"amounts"`
	Display            DisplayAmounts `json:"display"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// AmountsBody carries the exact integer results.
type AmountsBody struct {
	LongTokenAmount         string   `json:"longTokenAmount"`
	LongTokenUsd            string   `json:"longTokenUsd"`
	ShortTokenAmount        string   `json:"shortTokenAmount"`
	ShortTokenUsd           string   `json:"shortTokenUsd"`
	MarketTokenAmount       string   `json:"marketTokenAmount"`
	MarketTokenUsd          string   `json:"marketTokenUsd"`
	SwapFeeUsd              string   `json:"swapFeeUsd"`
	UIFeeUsd                string   `json:"uiFeeUsd"`
	SwapPriceImpactDeltaUsd string   `json:"swapPriceImpactDeltaUsd"`
	ImpactCapped            bool     `json:"impactCapped"`
	ImpactCappedUsd         string   `json:"impactCappedUsd"`
	UnpricedLegs            []string `json:"unpricedLegs,omitempty"`
}

// DisplayAmounts renders the same values in whole tokens and dollars.
type DisplayAmounts struct {
	LongToken               string `json:"longToken"`
	ShortToken              string `json:"shortToken"`
	MarketToken             string `json:"marketToken"`
	LongTokenUsd            string `json:"longTokenUsd"`
	ShortTokenUsd           string `json:"shortTokenUsd"`
	MarketTokenUsd          string `json:"marketTokenUsd"`
	SwapFeeUsd              string `json:"swapFeeUsd"`
	UIFeeUsd                string `json:"uiFeeUsd"`
	SwapPriceImpactDeltaUsd string `json:"swapPriceImpactDeltaUsd"`
}

// quoteContext bundles what both quote kinds resolve before calling the engine.
type quoteContext struct {
	state  marketdata.State
	market liquidity.MarketInfo
	vault  *liquidity.VaultInfo
	uiFee  *big.Int
	// marketTokenLong is set when the long leg carries GM being wrapped into a vault.
	marketTokenLong bool
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	var req DepositQuoteRequest
	outcome := observability.QuoteOutcome{Kind: kindDeposit}
	status, err := func() (int, error) {
		if err := decodeBody(w, r, &req); err != nil {
			return http.StatusBadRequest, err
		}
		outcome.Strategy = strategyLabel(req.Strategy)
		qc, status, err := s.resolve(req.Market, req.Vault, req.UIFeeFactor)
		if err != nil {
			return status, err
		}
		qc.marketTokenLong = req.IsMarketTokenDeposit
		long, err := parseAmount("longTokenAmount", req.LongTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		short, err := parseAmount("shortTokenAmount", req.ShortTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		mt, err := parseAmount("marketTokenAmount", req.MarketTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		amounts, err := liquidity.ComputeDepositAmounts(liquidity.DepositRequest{
			Market:               qc.market,
			Vault:                qc.vault,
			Strategy:             liquidity.Strategy(req.Strategy),
			LongTokenAmount:      long,
			ShortTokenAmount:     short,
			MarketTokenAmount:    mt,
			IncludeLongToken:     req.IncludeLongToken,
			IncludeShortToken:    req.IncludeShortToken,
			UIFeeFactor:          qc.uiFee,
			ForShift:             req.ForShift,
			IsMarketTokenDeposit: req.IsMarketTokenDeposit,
		})
		if err != nil {
			return engineStatus(err), err
		}
		outcome.Capped = amounts.ImpactCapped
		outcome.Unpriced = len(amounts.UnpricedLegs) > 0
		return s.respond(w, r, kindDeposit, req.Strategy, req, qc, amounts)
	}()
	outcome.Duration = s.now().Sub(start)
	outcome.Err = err
	s.metrics.Observe(outcome)
	if err != nil {
		writeError(w, status, err.Error())
	}
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	var req WithdrawalQuoteRequest
	outcome := observability.QuoteOutcome{Kind: kindWithdrawal}
	status, err := func() (int, error) {
		if err := decodeBody(w, r, &req); err != nil {
			return http.StatusBadRequest, err
		}
		outcome.Strategy = strategyLabel(req.Strategy)
		qc, status, err := s.resolve(req.Market, req.Vault, req.UIFeeFactor)
		if err != nil {
			return status, err
		}
		mt, err := parseAmount("marketTokenAmount", req.MarketTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		long, err := parseAmount("longTokenAmount", req.LongTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		short, err := parseAmount("shortTokenAmount", req.ShortTokenAmount)
		if err != nil {
			return http.StatusBadRequest, err
		}
		amounts, err := liquidity.ComputeWithdrawalAmounts(liquidity.WithdrawalRequest{
			Market:            qc.market,
			Vault:             qc.vault,
			Strategy:          liquidity.Strategy(req.Strategy),
			MarketTokenAmount: mt,
			LongTokenAmount:   long,
			ShortTokenAmount:  short,
			UIFeeFactor:       qc.uiFee,
			ForShift:          req.ForShift,
		})
		if err != nil {
			return engineStatus(err), err
		}
		outcome.Capped = amounts.ImpactCapped
		outcome.Unpriced = len(amounts.UnpricedLegs) > 0
		return s.respond(w, r, kindWithdrawal, req.Strategy, req, qc, amounts)
	}()
	outcome.Duration = s.now().Sub(start)
	outcome.Err = err
	s.metrics.Observe(outcome)
	if err != nil {
		writeError(w, status, err.Error())
	}
}

// resolve looks up the market and vault in the active snapshot. Stale
// snapshots are refused.
func (s *Server) resolve(marketRaw, vaultRaw, uiFeeRaw string) (quoteContext, int, error) {
	var qc quoteContext
	marketAddr, err := parseAddress("market", marketRaw)
	if err != nil {
		return qc, http.StatusBadRequest, err
	}
	state, err := s.markets.Latest()
	if err != nil {
		return qc, http.StatusServiceUnavailable, err
	}
	if state.Assessment.Status != pricing.PriceStatusOK {
		return qc, http.StatusServiceUnavailable, fmt.Errorf("market snapshot is %s", state.Assessment.Status)
	}
	qc.state = state
	if qc.market, err = state.Snapshot.Market(marketAddr); err != nil {
		return qc, http.StatusNotFound, err
	}
	if strings.TrimSpace(vaultRaw) != "" {
		vaultAddr, err := parseAddress("vault", vaultRaw)
		if err != nil {
			return qc, http.StatusBadRequest, err
		}
		if qc.vault, err = state.Snapshot.Vault(vaultAddr); err != nil {
			return qc, http.StatusNotFound, err
		}
	}
	qc.uiFee = s.cfg.UIFeeFactor
	if strings.TrimSpace(uiFeeRaw) != "" {
		if qc.uiFee, err = parseAmount("uiFeeFactor", uiFeeRaw); err != nil {
			return qc, http.StatusBadRequest, err
		}
	}
	return qc, http.StatusOK, nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, kind, strategy string, req any, qc quoteContext, amounts liquidity.Amounts) (int, error) {
	resp := QuoteResponse{
		ID:                 uuid.NewString(),
		Kind:               kind,
		Strategy:           strategy,
		Market:             qc.market.MarketToken.Address.Hex(),
		SnapshotDigest:     qc.state.Snapshot.Digest,
		PriceStatus:        string(qc.state.Assessment.Status),
		SnapshotAgeSeconds: qc.state.Assessment.AgeSeconds,
		Amounts:            amountsBody(amounts),
		Display:            displayAmounts(qc, amounts),
		CreatedAt:          s.now().UTC(),
	}
	if qc.vault != nil {
		resp.Vault = qc.vault.Token.Address.Hex()
	}

	if s.store != nil {
		if err := s.persist(r, resp, req, amounts); err != nil {
			return http.StatusInternalServerError, err
		}
	}
	s.logger.Debug("quote served",
		"quote_id", resp.ID,
		"kind", kind,
		"market", resp.Market,
		"strategy", strategy,
		"capped", amounts.ImpactCapped,
		"unpriced", len(amounts.UnpricedLegs) > 0,
	)
	writeJSON(w, http.StatusOK, resp)
	return http.StatusOK, nil
}

func (s *Server) persist(r *http.Request, resp QuoteResponse, req any, amounts liquidity.Amounts) error {
	id, err := uuid.Parse(resp.ID)
	if err != nil {
		return err
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	record := &storage.QuoteRecord{
		ID:             id,
		Kind:           resp.Kind,
		Strategy:       resp.Strategy,
		Market:         resp.Market,
		Vault:          resp.Vault,
		SnapshotDigest: resp.SnapshotDigest,
		PriceStatus:    resp.PriceStatus,
		Request:        string(reqJSON),
		Response:       string(respJSON),
		ImpactCapped:   amounts.ImpactCapped,
		UnpricedLegs:   strings.Join(amounts.UnpricedLegs, ","),
		CreatedAt:      resp.CreatedAt,
	}
	if err := s.store.SaveQuote(r.Context(), record); err != nil {
		return fmt.Errorf("persist quote: %w", err)
	}
	return nil
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, storage.ErrNotFound.Error())
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return
	}
	record, err := s.store.GetQuote(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(record.Response))
}

// QuoteSummary is one row of a market's quote history.
type QuoteSummary struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Strategy       string    `json:"strategy"`
	Vault          string    `json:"vault,omitempty"`
	SnapshotDigest string    `json:"snapshotDigest"`
	ImpactCapped   bool      `json:"impactCapped"`
	UnpricedLegs   []string  `json:"unpricedLegs,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Server) handleMarketQuotes(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []QuoteSummary{})
		return
	}
	records, err := s.store.RecentQuotes(r.Context(), addr.Hex(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]QuoteSummary, 0, len(records))
	for _, record := range records {
		summary := QuoteSummary{
			ID:             record.ID.String(),
			Kind:           record.Kind,
			Strategy:       record.Strategy,
			Vault:          record.Vault,
			SnapshotDigest: record.SnapshotDigest,
			ImpactCapped:   record.ImpactCapped,
			CreatedAt:      record.CreatedAt,
		}
		if record.UnpricedLegs != "" {
			summary.UnpricedLegs = strings.Split(record.UnpricedLegs, ",")
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

// strategyLabel bounds the metrics label to the known strategies.
func strategyLabel(raw string) string {
	switch strategy := liquidity.Strategy(raw); strategy {
	case liquidity.StrategyByCollaterals, liquidity.StrategyByMarketToken,
		liquidity.StrategyByLongCollateral, liquidity.StrategyByShortCollateral:
		return string(strategy)
	default:
		return "invalid"
	}
}

func engineStatus(err error) int {
	if errors.Is(err, liquidity.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", errBadRequest, err)
	}
	return nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a base-10 integer", errBadRequest, field)
	}
	return value, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: %s must be a hex address", errBadRequest, field)
	}
	return common.HexToAddress(trimmed), nil
}

func amountsBody(a liquidity.Amounts) AmountsBody {
	return AmountsBody{
		LongTokenAmount:         intString(a.LongTokenAmount),
		LongTokenUsd:            intString(a.LongTokenUsd),
		ShortTokenAmount:        intString(a.ShortTokenAmount),
		ShortTokenUsd:           intString(a.ShortTokenUsd),
		MarketTokenAmount:       intString(a.MarketTokenAmount),
		MarketTokenUsd:          intString(a.MarketTokenUsd),
		SwapFeeUsd:              intString(a.SwapFeeUsd),
		UIFeeUsd:                intString(a.UIFeeUsd),
		SwapPriceImpactDeltaUsd: intString(a.SwapPriceImpactDeltaUsd),
		ImpactCapped:            a.ImpactCapped,
		ImpactCappedUsd:         intString(a.ImpactCappedUsd),
		UnpricedLegs:            a.UnpricedLegs,
	}
}

func displayAmounts(qc quoteContext, a liquidity.Amounts) DisplayAmounts {
	marketToken := qc.market.MarketToken
	if qc.vault != nil {
		marketToken = qc.vault.Token
	}
	longToken := qc.market.LongToken
	if qc.marketTokenLong {
		longToken = qc.market.MarketToken
	}
	return DisplayAmounts{
		LongToken:               pricing.FormatUnits(a.LongTokenAmount, longToken.Decimals) + " " + longToken.Label(),
		ShortToken:              pricing.FormatUnits(a.ShortTokenAmount, qc.market.ShortToken.Decimals) + " " + qc.market.ShortToken.Label(),
		MarketToken:             pricing.FormatUnits(a.MarketTokenAmount, marketToken.Decimals) + " " + marketToken.Label(),
		LongTokenUsd:            pricing.FormatUsd(a.LongTokenUsd, 2),
		ShortTokenUsd:           pricing.FormatUsd(a.ShortTokenUsd, 2),
		MarketTokenUsd:          pricing.FormatUsd(a.MarketTokenUsd, 2),
		SwapFeeUsd:              pricing.FormatUsd(a.SwapFeeUsd, 4),
		UIFeeUsd:                pricing.FormatUsd(a.UIFeeUsd, 4),
		SwapPriceImpactDeltaUsd: pricing.FormatUsd(a.SwapPriceImpactDeltaUsd, 4),
	}
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
