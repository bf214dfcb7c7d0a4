package marketdata

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	gmAddress   = common.HexToAddress("0x70d95587d40A2caf56bd97485aB3Eec10Bee6336")
	wethAddress = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	glvAddress  = common.HexToAddress("0x528A5bac7E746C9A509A1f4F6dF58A03d44279F9")
)

func loadTestDocument(t *testing.T) Document {
	t.Helper()
	file, err := os.Open("testdata/markets.toml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer file.Close()
	doc, err := DecodeTOML(file)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc
}

func buildAt(t *testing.T, observed time.Time, source string) *Snapshot {
	t.Helper()
	doc := loadTestDocument(t)
	doc.ObservedAt = observed
	snap, err := Build(doc, source)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

type fakeSource struct {
	name  string
	snap  *Snapshot
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) (*Snapshot, error) {
	_ = ctx
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

var errFeedDown = errors.New("feed down")
