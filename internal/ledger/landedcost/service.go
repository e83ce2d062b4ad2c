package landedcost

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/voucher"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Poster posts the allocation journal. The voucher service implements
// it.
type Poster interface {
	Submit(ctx context.Context, actor shared.Actor, in voucher.SubmitInput) (voucher.Journal, error)
}

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies landed cost documents: computes allocations, posts
// the journal and marks the document applied.
type Service struct {
	repo   Repository
	poster Poster
	audit  AuditPort
	scales ledger.Scales
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, poster Poster, audit AuditPort, scales ledger.Scales, logger *slog.Logger) *Service {
	return &Service{repo: repo, poster: poster, audit: audit, scales: scales, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, actor shared.Actor, documentID int64) (Document, error) {
	return s.repo.Get(ctx, actor.OrgID, documentID)
}

// Apply allocates the document's costs across its purchase lines and
// posts the journal: one debit per target account, one credit for the
// full cost. The idempotency key on the posting guards concurrent
// double-applies; the guarded repository update guards sequential ones.
func (s *Service) Apply(ctx context.Context, actor shared.Actor, documentID int64) (Document, error) {
	doc, err := s.repo.Get(ctx, actor.OrgID, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.IsApplied {
		return Document{}, ledger.E(ledger.KindLandedCost, "landed cost document %s already applied", doc.Number)
	}

	total := doc.TotalCost()
	shares, err := Allocate(total, doc.Targets, doc.Basis, s.scales)
	if err != nil {
		return Document{}, err
	}

	in := voucher.SubmitInput{
		DocTypeID:      doc.DocTypeID,
		Commit:         voucher.CommitPost,
		IdempotencyKey: fmt.Sprintf("landedcost:%d", doc.ID),
		Header: voucher.HeaderInput{
			Date:        &doc.Date,
			Reference:   doc.Number,
			Description: "Landed cost allocation " + doc.Number,
			Currency:    doc.Currency,
		},
	}
	allocations := make([]Allocation, 0, len(doc.Targets))
	for i, t := range doc.Targets {
		if shares[i].IsZero() {
			continue
		}
		allocations = append(allocations, Allocation{
			DocumentID:   doc.ID,
			TargetLineID: t.ID,
			AccountID:    t.AccountID,
			Amount:       shares[i],
		})
		in.Lines = append(in.Lines, voucher.LineInput{
			AccountRef:  strconv.FormatInt(t.AccountID, 10),
			Debit:       shares[i],
			Description: "Landed cost " + doc.Number,
		})
	}
	in.Lines = append(in.Lines, voucher.LineInput{
		AccountRef:  strconv.FormatInt(doc.CreditAccountID, 10),
		Credit:      total,
		Description: "Landed cost " + doc.Number,
	})

	journal, err := s.poster.Submit(ctx, actor, in)
	if err != nil {
		return Document{}, err
	}

	if err := s.repo.Apply(ctx, actor.OrgID, doc.ID, journal.ID, allocations); err != nil {
		// The journal is posted but the document link failed. Reversal
		// keeps the ledger consistent; the document stays unapplied.
		s.logger.Error("landed cost apply failed after posting, journal left for reversal",
			slog.Int64("document_id", doc.ID), slog.Int64("journal_id", journal.ID), slog.Any("error", err))
		return Document{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "landedcost.apply",
			Entity:   doc.EntityKind(),
			EntityID: doc.ID,
			Meta:     map[string]any{"journal_id": journal.ID, "total": total.StringFixed(s.scales.Cash)},
			At:       s.now(),
		})
	}
	return s.repo.Get(ctx, actor.OrgID, doc.ID)
}
