package landedcost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/voucher"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryDocRepo struct {
	docs     map[int64]Document
	applyErr error
}

func (r *memoryDocRepo) Get(_ context.Context, orgID, id int64) (Document, error) {
	doc, ok := r.docs[id]
	if !ok || doc.OrgID != orgID {
		return Document{}, ledger.E(ledger.KindNotFound, "landed cost document %d not found", id)
	}
	return doc, nil
}

func (r *memoryDocRepo) Apply(_ context.Context, orgID, docID, journalID int64, allocations []Allocation) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	doc, ok := r.docs[docID]
	if !ok || doc.OrgID != orgID {
		return ledger.E(ledger.KindNotFound, "landed cost document %d not found", docID)
	}
	if doc.IsApplied {
		return ledger.E(ledger.KindLandedCost, "landed cost document %d already applied", docID)
	}
	doc.IsApplied = true
	doc.AppliedJournalID = &journalID
	doc.Allocations = allocations
	r.docs[docID] = doc
	return nil
}

// capturingPoster records submissions and hands back posted journals.
type capturingPoster struct {
	inputs []voucher.SubmitInput
	nextID int64
	err    error
}

func (p *capturingPoster) Submit(_ context.Context, _ shared.Actor, in voucher.SubmitInput) (voucher.Journal, error) {
	if p.err != nil {
		return voucher.Journal{}, p.err
	}
	p.inputs = append(p.inputs, in)
	p.nextID++
	return voucher.Journal{
		ID:     p.nextID,
		Number: fmt.Sprintf("LCJ-%05d", p.nextID),
		Status: voucher.StatusPosted,
	}, nil
}

var applyActor = shared.Actor{ID: 9, OrgID: 1, Name: "pat"}

func valueBasisDocument() Document {
	return Document{
		ID:                1,
		OrgID:             1,
		Number:            "LC-0001",
		PurchaseInvoiceID: 9,
		DocTypeID:         4,
		Basis:             BasisValue,
		CreditAccountID:   2100,
		Currency:          "USD",
		Date:              time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		CostLines: []CostLine{
			{ID: 1, Description: "Freight", Amount: dec("30.00")},
			{ID: 2, Description: "Duty", Amount: dec("20.00")},
		},
		Targets: []TargetLine{
			{ID: 11, AccountID: 1401, ExtendedCost: dec("600")},
			{ID: 12, AccountID: 1402, ExtendedCost: dec("300")},
			{ID: 13, AccountID: 1403, ExtendedCost: dec("100")},
		},
	}
}

func newApplyFixture(doc Document) (*memoryDocRepo, *capturingPoster, *Service) {
	repo := &memoryDocRepo{docs: map[int64]Document{doc.ID: doc}}
	poster := &capturingPoster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, poster, nil, ledger.DefaultScales(), logger)
	return repo, poster, svc
}

func TestApplyPostsBalancedJournalAndMarksApplied(t *testing.T) {
	repo, poster, svc := newApplyFixture(valueBasisDocument())

	doc, err := svc.Apply(context.Background(), applyActor, 1)
	require.NoError(t, err)
	require.True(t, doc.IsApplied)
	require.NotNil(t, doc.AppliedJournalID)
	require.Equal(t, int64(1), *doc.AppliedJournalID)

	require.Len(t, poster.inputs, 1)
	in := poster.inputs[0]
	require.Equal(t, voucher.CommitPost, in.Commit)
	require.Equal(t, "landedcost:1", in.IdempotencyKey)
	require.Equal(t, int64(4), in.DocTypeID)

	// One debit per target, one credit for the full cost; the posting
	// balances by construction.
	require.Len(t, in.Lines, 4)
	debits := decimal.Zero
	for _, l := range in.Lines[:3] {
		debits = debits.Add(l.Debit)
	}
	require.True(t, in.Lines[0].Debit.Equal(dec("30.00")), "got %s", in.Lines[0].Debit)
	require.True(t, in.Lines[1].Debit.Equal(dec("15.00")), "got %s", in.Lines[1].Debit)
	require.True(t, in.Lines[2].Debit.Equal(dec("5.00")), "got %s", in.Lines[2].Debit)
	require.True(t, in.Lines[3].Credit.Equal(debits), "credit %s, debits %s", in.Lines[3].Credit, debits)
	require.Equal(t, "2100", in.Lines[3].AccountRef)

	stored := repo.docs[1]
	require.Len(t, stored.Allocations, 3)
	require.Equal(t, int64(11), stored.Allocations[0].TargetLineID)
	require.True(t, stored.Allocations[2].Amount.Equal(dec("5.00")))
}

func TestApplyRejectsAlreadyApplied(t *testing.T) {
	doc := valueBasisDocument()
	doc.IsApplied = true
	_, poster, svc := newApplyFixture(doc)

	_, err := svc.Apply(context.Background(), applyActor, 1)
	require.Equal(t, ledger.KindLandedCost, ledger.KindOf(err))
	require.Empty(t, poster.inputs, "no journal may be posted for an applied document")
}

func TestApplySecondApplyRejected(t *testing.T) {
	_, poster, svc := newApplyFixture(valueBasisDocument())

	_, err := svc.Apply(context.Background(), applyActor, 1)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), applyActor, 1)
	require.Equal(t, ledger.KindLandedCost, ledger.KindOf(err))
	require.Len(t, poster.inputs, 1)
}

func TestApplySkipsZeroShares(t *testing.T) {
	doc := valueBasisDocument()
	doc.Basis = BasisWeight
	doc.Targets = []TargetLine{
		{ID: 11, AccountID: 1401, Weight: dec("5")},
		{ID: 12, AccountID: 1402, Weight: dec("0")},
	}
	repo, poster, svc := newApplyFixture(doc)

	_, err := svc.Apply(context.Background(), applyActor, 1)
	require.NoError(t, err)

	// The weightless target gets no debit line and no allocation row.
	in := poster.inputs[0]
	require.Len(t, in.Lines, 2)
	require.True(t, in.Lines[0].Debit.Equal(dec("50.00")))
	require.Len(t, repo.docs[1].Allocations, 1)
	require.Equal(t, int64(11), repo.docs[1].Allocations[0].TargetLineID)
}

func TestApplyLeavesDocumentUnappliedWhenLinkFails(t *testing.T) {
	repo, poster, svc := newApplyFixture(valueBasisDocument())
	repo.applyErr = errors.New("connection reset")

	_, err := svc.Apply(context.Background(), applyActor, 1)
	require.Error(t, err)
	require.Len(t, poster.inputs, 1, "the journal was posted before the link failed")
	require.False(t, repo.docs[1].IsApplied, "document stays unapplied so the journal can be reversed")
}

func TestApplyPosterFailurePropagates(t *testing.T) {
	repo, poster, svc := newApplyFixture(valueBasisDocument())
	poster.err = ledger.E(ledger.KindPeriod, "no open period covers 2026-03-15")

	_, err := svc.Apply(context.Background(), applyActor, 1)
	require.Equal(t, ledger.KindPeriod, ledger.KindOf(err))
	require.False(t, repo.docs[1].IsApplied)
}
