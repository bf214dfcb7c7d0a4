package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/native/liquidity"
	"github.com/uxuyconnect/gmx-interface/services/quoted/marketdata"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "deposit":
		return runQuote("deposit", args[1:], stdout, stderr)
	case "withdraw", "withdrawal":
		return runQuote("withdrawal", args[1:], stdout, stderr)
	case "markets":
		return runMarkets(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: gm-quote <command> -snapshot markets.toml [flags]")
	fmt.Fprintln(buf, "Commands:")
	fmt.Fprintln(buf, "  deposit      Quote a GM/GLV deposit")
	fmt.Fprintln(buf, "  withdraw     Quote a GM/GLV withdrawal")
	fmt.Fprintln(buf, "  markets      List markets in the snapshot")
	return buf.String()
}

type quoteFlags struct {
	snapshot    string
	market      string
	vault       string
	strategy    string
	long        string
	short       string
	marketToken string
	uiFee       string
	shift       bool
	gmDeposit   bool
	noLong      bool
	noShort     bool
	asJSON      bool
}

func runQuote(kind string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(kind, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f quoteFlags
	fs.StringVar(&f.snapshot, "snapshot", "markets.toml", "market snapshot file (.toml or .json)")
	fs.StringVar(&f.market, "market", "", "GM market token address")
	fs.StringVar(&f.vault, "vault", "", "optional GLV vault token address")
	fs.StringVar(&f.strategy, "strategy", "", "byCollaterals, byMarketToken, byLongCollateral or byShortCollateral")
	fs.StringVar(&f.long, "long", "", "long token amount in whole tokens, e.g. 1.5")
	fs.StringVar(&f.short, "short", "", "short token amount in whole tokens")
	fs.StringVar(&f.marketToken, "gm", "", "market (or vault) token amount in whole tokens")
	fs.StringVar(&f.uiFee, "ui-fee-factor", "", "UI fee factor scaled by 1e30")
	fs.BoolVar(&f.shift, "shift", false, "quote as part of a shift (no swap fees)")
	fs.BoolVar(&f.gmDeposit, "gm-deposit", false, "deposit GM tokens into the vault")
	fs.BoolVar(&f.noLong, "no-long", false, "exclude the long token when splitting a byMarketToken deposit")
	fs.BoolVar(&f.noShort, "no-short", false, "exclude the short token when splitting a byMarketToken deposit")
	fs.BoolVar(&f.asJSON, "json", false, "print raw integers as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	snap, err := loadSnapshot(f.snapshot)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading snapshot: %v\n", err)
		return 1
	}
	market, vault, err := lookup(snap, f.market, f.vault)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	amounts, err := quote(kind, f, market, vault)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if f.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonAmounts(amounts)); err != nil {
			fmt.Fprintf(stderr, "Error encoding result: %v\n", err)
			return 1
		}
		return 0
	}
	printTable(stdout, kind, market, vault, f.gmDeposit, amounts)
	return 0
}

func quote(kind string, f quoteFlags, market liquidity.MarketInfo, vault *liquidity.VaultInfo) (liquidity.Amounts, error) {
	strategy := liquidity.Strategy(f.strategy)
	if strategy == "" {
		strategy = defaultStrategy(kind, f)
	}
	longToken := market.LongToken
	if f.gmDeposit {
		longToken = market.MarketToken
	}
	long, err := parseOptional("long", f.long, longToken.Decimals)
	if err != nil {
		return liquidity.Amounts{}, err
	}
	short, err := parseOptional("short", f.short, market.ShortToken.Decimals)
	if err != nil {
		return liquidity.Amounts{}, err
	}
	mtDecimals := market.MarketToken.Decimals
	if vault != nil {
		mtDecimals = vault.Token.Decimals
	}
	mt, err := parseOptional("gm", f.marketToken, mtDecimals)
	if err != nil {
		return liquidity.Amounts{}, err
	}
	var uiFee *big.Int
	if strings.TrimSpace(f.uiFee) != "" {
		var ok bool
		if uiFee, ok = new(big.Int).SetString(strings.TrimSpace(f.uiFee), 10); !ok {
			return liquidity.Amounts{}, fmt.Errorf("ui-fee-factor %q is not an integer", f.uiFee)
		}
	}

	if kind == "deposit" {
		return liquidity.ComputeDepositAmounts(liquidity.DepositRequest{
			Market:               market,
			Vault:                vault,
			Strategy:             strategy,
			LongTokenAmount:      long,
			ShortTokenAmount:     short,
			MarketTokenAmount:    mt,
			IncludeLongToken:     !f.noLong,
			IncludeShortToken:    !f.noShort,
			UIFeeFactor:          uiFee,
			ForShift:             f.shift,
			IsMarketTokenDeposit: f.gmDeposit,
		})
	}
	return liquidity.ComputeWithdrawalAmounts(liquidity.WithdrawalRequest{
		Market:            market,
		Vault:             vault,
		Strategy:          strategy,
		MarketTokenAmount: mt,
		LongTokenAmount:   long,
		ShortTokenAmount:  short,
		UIFeeFactor:       uiFee,
		ForShift:          f.shift,
	})
}

func defaultStrategy(kind string, f quoteFlags) liquidity.Strategy {
	if strings.TrimSpace(f.marketToken) != "" {
		return liquidity.StrategyByMarketToken
	}
	if kind == "withdrawal" {
		switch {
		case f.long != "" && f.short == "":
			return liquidity.StrategyByLongCollateral
		case f.short != "" && f.long == "":
			return liquidity.StrategyByShortCollateral
		}
	}
	return liquidity.StrategyByCollaterals
}

func runMarkets(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("snapshot", "markets.toml", "market snapshot file (.toml or .json)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	snap, err := loadSnapshot(*path)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading snapshot: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tLONG\tSHORT\tPOOL VALUE (USD)")
	for _, addr := range snap.Markets() {
		market, err := snap.Market(addr)
		if err != nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", addr.Hex(), market.LongToken.Label(), market.ShortToken.Label(), pricing.FormatUsd(market.PoolValueMax, 2))
	}
	_ = tw.Flush()
	fmt.Fprintf(stdout, "Digest: %s\n", snap.Digest)
	return 0
}

func loadSnapshot(path string) (*marketdata.Snapshot, error) {
	doc, err := marketdata.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return marketdata.Build(doc, path)
}

func lookup(snap *marketdata.Snapshot, marketRaw, vaultRaw string) (liquidity.MarketInfo, *liquidity.VaultInfo, error) {
	if !common.IsHexAddress(strings.TrimSpace(marketRaw)) {
		return liquidity.MarketInfo{}, nil, fmt.Errorf("-market must be a hex address")
	}
	market, err := snap.Market(common.HexToAddress(strings.TrimSpace(marketRaw)))
	if err != nil {
		return liquidity.MarketInfo{}, nil, err
	}
	if strings.TrimSpace(vaultRaw) == "" {
		return market, nil, nil
	}
	if !common.IsHexAddress(strings.TrimSpace(vaultRaw)) {
		return liquidity.MarketInfo{}, nil, fmt.Errorf("-vault must be a hex address")
	}
	vault, err := snap.Vault(common.HexToAddress(strings.TrimSpace(vaultRaw)))
	if err != nil {
		return liquidity.MarketInfo{}, nil, err
	}
	return market, vault, nil
}

func parseOptional(field, raw string, decimals uint8) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := pricing.ParseUnits(raw, decimals)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", field, err)
	}
	return value, nil
}

func printTable(w io.Writer, kind string, market liquidity.MarketInfo, vault *liquidity.VaultInfo, gmLong bool, a liquidity.Amounts) {
	longToken := market.LongToken
	if gmLong {
		longToken = market.MarketToken
	}
	marketToken := market.MarketToken
	if vault != nil {
		marketToken = vault.Token
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s quote\t\t\n", cases.Title(language.English).String(kind))
	fmt.Fprintln(tw, "LEG\tAMOUNT\tUSD")
	fmt.Fprintf(tw, "%s\t%s\t%s\n", longToken.Label(), pricing.FormatUnits(a.LongTokenAmount, longToken.Decimals), pricing.FormatUsd(a.LongTokenUsd, 2))
	fmt.Fprintf(tw, "%s\t%s\t%s\n", market.ShortToken.Label(), pricing.FormatUnits(a.ShortTokenAmount, market.ShortToken.Decimals), pricing.FormatUsd(a.ShortTokenUsd, 2))
	fmt.Fprintf(tw, "%s\t%s\t%s\n", marketToken.Label(), pricing.FormatUnits(a.MarketTokenAmount, marketToken.Decimals), pricing.FormatUsd(a.MarketTokenUsd, 2))
	fmt.Fprintf(tw, "Swap fee\t\t%s\n", pricing.FormatUsd(a.SwapFeeUsd, 4))
	fmt.Fprintf(tw, "UI fee\t\t%s\n", pricing.FormatUsd(a.UIFeeUsd, 4))
	fmt.Fprintf(tw, "Price impact\t\t%s\n", pricing.FormatUsd(a.SwapPriceImpactDeltaUsd, 4))
	_ = tw.Flush()
	if a.ImpactCapped {
		fmt.Fprintf(w, "Impact capped by the impact pool; %s USD not paid out.\n", pricing.FormatUsd(a.ImpactCappedUsd, 4))
	}
	if len(a.UnpricedLegs) > 0 {
		fmt.Fprintf(w, "Warning: no price for %s; those legs count as zero.\n", strings.Join(a.UnpricedLegs, ", "))
	}
}

type amountsJSON struct {
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

func jsonAmounts(a liquidity.Amounts) amountsJSON {
	str := func(v *big.Int) string {
		if v == nil {
			return "0"
		}
		return v.String()
	}
	return amountsJSON{
		LongTokenAmount:         str(a.LongTokenAmount),
		LongTokenUsd:            str(a.LongTokenUsd),
		ShortTokenAmount:        str(a.ShortTokenAmount),
		ShortTokenUsd:           str(a.ShortTokenUsd),
		MarketTokenAmount:       str(a.MarketTokenAmount),
		MarketTokenUsd:          str(a.MarketTokenUsd),
		SwapFeeUsd:              str(a.SwapFeeUsd),
		UIFeeUsd:                str(a.UIFeeUsd),
		SwapPriceImpactDeltaUsd: str(a.SwapPriceImpactDeltaUsd),
		ImpactCapped:            a.ImpactCapped,
		ImpactCappedUsd:         str(a.ImpactCappedUsd),
		UnpricedLegs:            a.UnpricedLegs,
	}
}
