package marketdata

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/blake3"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/native/liquidity"
)

// ErrUnknownMarket is returned when a snapshot does not carry the requested market.
var ErrUnknownMarket = errors.New("marketdata: unknown market")

// Document is the wire form of a market snapshot, shared by TOML files and
// HTTP JSON feeds. Integers are decimal strings to keep full precision.
type Document struct {
	ObservedAt time.Time   `toml:"observed_at" json:"observedAt"`
	Tokens     []TokenDoc  `toml:"tokens" json:"tokens"`
	Markets    []MarketDoc `toml:"markets" json:"markets"`
	Vaults     []VaultDoc  `toml:"vaults" json:"vaults,omitempty"`
}

// TokenDoc describes one token. Prices are USD per whole token scaled by 1e30.
type TokenDoc struct {
	Address     string `toml:"address" json:"address"`
	Symbol      string `toml:"symbol" json:"symbol"`
	Decimals    uint8  `toml:"decimals" json:"decimals"`
	MinPrice    string `toml:"min_price" json:"minPrice"`
	MaxPrice    string `toml:"max_price" json:"maxPrice"`
	TotalSupply string `toml:"total_supply" json:"totalSupply,omitempty"`
}

// MarketDoc describes one GM market by token address.
type MarketDoc struct {
	MarketToken string `toml:"market_token" json:"marketToken"`
	LongToken   string `toml:"long_token" json:"longToken"`
	ShortToken  string `toml:"short_token" json:"shortToken"`

	LongPoolAmount  string `toml:"long_pool_amount" json:"longPoolAmount"`
	ShortPoolAmount string `toml:"short_pool_amount" json:"shortPoolAmount"`
	PoolValueMax    string `toml:"pool_value_max" json:"poolValueMax"`

	SwapImpactPoolAmountLong  string `toml:"swap_impact_pool_amount_long" json:"swapImpactPoolAmountLong"`
	SwapImpactPoolAmountShort string `toml:"swap_impact_pool_amount_short" json:"swapImpactPoolAmountShort"`
	SwapImpactFactorPositive  string `toml:"swap_impact_factor_positive" json:"swapImpactFactorPositive"`
	SwapImpactFactorNegative  string `toml:"swap_impact_factor_negative" json:"swapImpactFactorNegative"`
	SwapImpactExponentFactor  string `toml:"swap_impact_exponent_factor" json:"swapImpactExponentFactor"`

	SwapFeeFactorForPositiveImpact string `toml:"swap_fee_factor_positive_impact" json:"swapFeeFactorForPositiveImpact"`
	SwapFeeFactorForNegativeImpact string `toml:"swap_fee_factor_negative_impact" json:"swapFeeFactorForNegativeImpact"`

	VirtualPoolAmountForLongToken  string `toml:"virtual_pool_amount_long" json:"virtualPoolAmountForLongToken,omitempty"`
	VirtualPoolAmountForShortToken string `toml:"virtual_pool_amount_short" json:"virtualPoolAmountForShortToken,omitempty"`
}

// VaultDoc describes a GLV vault token and the markets it wraps.
type VaultDoc struct {
	Token   string   `toml:"token" json:"token"`
	Markets []string `toml:"markets" json:"markets"`
}

// Snapshot is a decoded, validated document ready for quoting.
type Snapshot struct {
	ObservedAt time.Time
	Digest     string
	Source     string
	Document   Document

	markets map[common.Address]liquidity.MarketInfo
	vaults  map[common.Address]*liquidity.VaultInfo
}

// DecodeTOML parses a TOML snapshot document.
func DecodeTOML(r io.Reader) (Document, error) {
	var doc Document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode toml snapshot: %w", err)
	}
	return doc, nil
}

// DecodeJSON parses a JSON snapshot document.
func DecodeJSON(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode json snapshot: %w", err)
	}
	return doc, nil
}

// Build validates the document and resolves every market into engine types.
func Build(doc Document, source string) (*Snapshot, error) {
	tokens := make(map[common.Address]pricing.Token, len(doc.Tokens))
	for i, td := range doc.Tokens {
		token, err := td.token()
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		if _, dup := tokens[token.Address]; dup {
			return nil, fmt.Errorf("token %s listed twice", token.Address.Hex())
		}
		tokens[token.Address] = token
	}
	lookup := func(field, raw string) (pricing.Token, error) {
		addr, err := parseAddress(field, raw)
		if err != nil {
			return pricing.Token{}, err
		}
		token, ok := tokens[addr]
		if !ok {
			return pricing.Token{}, fmt.Errorf("%s %s not in token list", field, addr.Hex())
		}
		return token, nil
	}

	snap := &Snapshot{
		ObservedAt: doc.ObservedAt.UTC(),
		Source:     source,
		Document:   doc,
		markets:    make(map[common.Address]liquidity.MarketInfo, len(doc.Markets)),
		vaults:     make(map[common.Address]*liquidity.VaultInfo, len(doc.Vaults)),
	}
	for i, md := range doc.Markets {
		market, err := md.market(lookup)
		if err != nil {
			return nil, fmt.Errorf("market %d: %w", i, err)
		}
		if err := market.Validate(); err != nil {
			return nil, fmt.Errorf("market %s: %w", market.MarketToken.Address.Hex(), err)
		}
		snap.markets[market.MarketToken.Address] = market
	}
	for i, vd := range doc.Vaults {
		token, err := lookup("vault token", vd.Token)
		if err != nil {
			return nil, fmt.Errorf("vault %d: %w", i, err)
		}
		vault := &liquidity.VaultInfo{Token: token}
		for _, raw := range vd.Markets {
			addr, err := parseAddress("vault market", raw)
			if err != nil {
				return nil, fmt.Errorf("vault %d: %w", i, err)
			}
			vault.Markets = append(vault.Markets, addr)
		}
		snap.vaults[token.Address] = vault
	}

	digest, err := Digest(doc)
	if err != nil {
		return nil, err
	}
	snap.Digest = digest
	return snap, nil
}

// Digest returns the blake3 hash of the document's canonical JSON form.
func Digest(doc Document) (string, error) {
	canonical := doc
	canonical.ObservedAt = doc.ObservedAt.UTC()
	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Market returns the market keyed by its GM token address.
func (s *Snapshot) Market(addr common.Address) (liquidity.MarketInfo, error) {
	if s == nil {
		return liquidity.MarketInfo{}, ErrUnknownMarket
	}
	market, ok := s.markets[addr]
	if !ok {
		return liquidity.MarketInfo{}, fmt.Errorf("%w: %s", ErrUnknownMarket, addr.Hex())
	}
	return market, nil
}

// Vault returns the vault keyed by its GLV token address.
func (s *Snapshot) Vault(addr common.Address) (*liquidity.VaultInfo, error) {
	if s == nil {
		return nil, ErrUnknownMarket
	}
	vault, ok := s.vaults[addr]
	if !ok {
		return nil, fmt.Errorf("%w: vault %s", ErrUnknownMarket, addr.Hex())
	}
	clone := *vault
	clone.Markets = append([]common.Address(nil), vault.Markets...)
	return &clone, nil
}

// Markets returns the market addresses in a stable order.
func (s *Snapshot) Markets() []common.Address {
	if s == nil {
		return nil
	}
	out := make([]common.Address, 0, len(s.markets))
	for addr := range s.markets {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Hex(), out[j].Hex()) < 0
	})
	return out
}

// Tokens returns every token referenced by the snapshot.
func (s *Snapshot) Tokens() []pricing.Token {
	if s == nil {
		return nil
	}
	seen := make(map[common.Address]struct{})
	var out []pricing.Token
	add := func(token pricing.Token) {
		if _, ok := seen[token.Address]; ok {
			return
		}
		seen[token.Address] = struct{}{}
		out = append(out, token)
	}
	for _, addr := range s.Markets() {
		market := s.markets[addr]
		add(market.MarketToken)
		add(market.LongToken)
		add(market.ShortToken)
	}
	for _, vault := range s.vaults {
		add(vault.Token)
	}
	return out
}

func (td TokenDoc) token() (pricing.Token, error) {
	addr, err := parseAddress("token", td.Address)
	if err != nil {
		return pricing.Token{}, err
	}
	minPrice, err := parseInt("min_price", td.MinPrice)
	if err != nil {
		return pricing.Token{}, err
	}
	maxPrice, err := parseInt("max_price", td.MaxPrice)
	if err != nil {
		return pricing.Token{}, err
	}
	supply, err := parseInt("total_supply", td.TotalSupply)
	if err != nil {
		return pricing.Token{}, err
	}
	return pricing.Token{
		Address:     addr,
		Symbol:      strings.TrimSpace(td.Symbol),
		Decimals:    td.Decimals,
		Prices:      pricing.NewPrices(minPrice, maxPrice),
		TotalSupply: supply,
	}, nil
}

func (md MarketDoc) market(lookup func(field, raw string) (pricing.Token, error)) (liquidity.MarketInfo, error) {
	var market liquidity.MarketInfo
	var err error
	if market.MarketToken, err = lookup("market_token", md.MarketToken); err != nil {
		return market, err
	}
	if market.LongToken, err = lookup("long_token", md.LongToken); err != nil {
		return market, err
	}
	if market.ShortToken, err = lookup("short_token", md.ShortToken); err != nil {
		return market, err
	}
	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"long_pool_amount", md.LongPoolAmount, &market.LongPoolAmount},
		{"short_pool_amount", md.ShortPoolAmount, &market.ShortPoolAmount},
		{"pool_value_max", md.PoolValueMax, &market.PoolValueMax},
		{"swap_impact_pool_amount_long", md.SwapImpactPoolAmountLong, &market.SwapImpactPoolAmountLong},
		{"swap_impact_pool_amount_short", md.SwapImpactPoolAmountShort, &market.SwapImpactPoolAmountShort},
		{"swap_impact_factor_positive", md.SwapImpactFactorPositive, &market.SwapImpactFactorPositive},
		{"swap_impact_factor_negative", md.SwapImpactFactorNegative, &market.SwapImpactFactorNegative},
		{"swap_impact_exponent_factor", md.SwapImpactExponentFactor, &market.SwapImpactExponentFactor},
		{"swap_fee_factor_positive_impact", md.SwapFeeFactorForPositiveImpact, &market.SwapFeeFactorForPositiveImpact},
		{"swap_fee_factor_negative_impact", md.SwapFeeFactorForNegativeImpact, &market.SwapFeeFactorForNegativeImpact},
		{"virtual_pool_amount_long", md.VirtualPoolAmountForLongToken, &market.VirtualPoolAmountForLongToken},
		{"virtual_pool_amount_short", md.VirtualPoolAmountForShortToken, &market.VirtualPoolAmountForShortToken},
	}
	for _, f := range fields {
		value, err := parseInt(f.name, f.raw)
		if err != nil {
			return market, err
		}
		*f.dst = value
	}
	return market, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s %q is not a hex address", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseInt(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s %q is not an integer", field, raw)
	}
	return value, nil
}
