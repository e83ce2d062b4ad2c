package voucher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/gl"
	"github.com/meridian-erp/meridian-erp/internal/ledger/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequence"
	"github.com/meridian-erp/meridian-erp/internal/ledger/tax"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TaxPort is the slice of the tax engine the orchestrator needs.
type TaxPort interface {
	CodeByID(ctx context.Context, orgID, codeID int64, date time.Time) (tax.Code, error)
	CalculateLineTaxes(base decimal.Decimal, codes []tax.Code, date time.Time) []tax.LineTax
}

// Finalizer runs external post-finalization after the posting
// transaction commits. A failure here triggers the documented
// compensating delete of the just-created journal.
type Finalizer interface {
	Finalize(ctx context.Context, j Journal) error
}

// Service is the voucher orchestrator: the transaction boundary that
// resolves references, validates, persists, projects GL rows and
// advances the state machine.
type Service struct {
	repo      Repository
	seq       *sequence.Service
	taxes     TaxPort
	projector *gl.Projector
	audit     AuditPort
	finalizer Finalizer
	scales    ledger.Scales
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, seq *sequence.Service, taxes TaxPort, projector *gl.Projector, audit AuditPort, scales ledger.Scales, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		seq:       seq,
		taxes:     taxes,
		projector: projector,
		audit:     audit,
		scales:    scales,
		logger:    logger,
		now:       time.Now,
	}
}

// WithFinalizer installs the external post-finalization hook.
func (s *Service) WithFinalizer(f Finalizer) {
	s.finalizer = f
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, actor shared.Actor, journalID int64) (Journal, error) {
	return s.repo.Get(ctx, actor.OrgID, journalID)
}

func (s *Service) List(ctx context.Context, actor shared.Actor, limit int) ([]Journal, error) {
	return s.repo.List(ctx, actor.OrgID, limit)
}

// Submit creates or updates a voucher. Everything through persistence
// and the status advance runs in one atomic transaction; any failure
// rolls the whole submission back, consumed sequence numbers included.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, in SubmitInput) (Journal, error) {
	if err := in.Validate(); err != nil {
		return Journal{}, err
	}
	var result Journal
	var replayed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		docType, err := tx.GetDocType(ctx, actor.OrgID, in.DocTypeID)
		if err != nil {
			return err
		}

		journalID := in.JournalID
		var existing *Journal
		if in.IdempotencyKey != "" {
			found, ok, err := tx.FindByIdempotencyKeyForUpdate(ctx, actor.OrgID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				if found.DocTypeID != docType.ID {
					return ledger.E(ledger.KindIdempotency, "idempotency key reused for a different document type")
				}
				if found.Status == StatusPosted {
					// Exactly-once guarantee for retried calls: the
					// first post won, return it unchanged.
					result = found
					replayed = true
					return nil
				}
				journalID = found.ID
				existing = &found
			}
		}

		now := s.now()
		date := in.Header.EffectiveDate(now)
		period, err := tx.FindOpenPeriodByDate(ctx, actor.OrgID, date)
		if err != nil {
			return err
		}
		currencyCode, err := resolveCurrency(ctx, tx, actor.OrgID, in.Header.Currency)
		if err != nil {
			return err
		}
		rate := decimal.NewFromInt(1)
		if in.Header.ExchangeRate != nil {
			if in.Header.ExchangeRate.Sign() <= 0 {
				return ledger.E(ledger.KindLine, "exchange rate must be positive")
			}
			rate = s.scales.RoundRate(*in.Header.ExchangeRate)
		}

		var journal Journal
		if journalID != 0 {
			if existing != nil {
				journal = *existing
			} else {
				journal, err = tx.GetJournalWithLines(ctx, actor.OrgID, journalID)
				if err != nil {
					return err
				}
			}
			if journal.DocTypeID != docType.ID {
				return ledger.E(ledger.KindConfig, "journal %s belongs to another document type", journal.Number)
			}
			if !journal.Status.Mutable() {
				return ledger.E(ledger.KindState, "journal %s is %s and its lines cannot be rewritten", journal.Number, journal.Status)
			}
		} else {
			journal = Journal{
				OrgID:        actor.OrgID,
				DocTypeID:    docType.ID,
				SourceModule: docType.SourceModule,
				SourceRef:    uuid.New(),
				Status:       StatusDraft,
				CreatedBy:    actor.ID,
			}
			if in.IdempotencyKey != "" {
				key := in.IdempotencyKey
				journal.IdempotencyKey = &key
			}
			fyCode := ""
			if fy, err := tx.FiscalYearByDate(ctx, actor.OrgID, date); err == nil {
				fyCode = fy.Code
			} else if ledger.KindOf(err) != ledger.KindPeriod {
				return err
			}
			number, err := s.seq.Next(ctx, tx, sequence.Request{
				ConfigID:       docType.SequenceConfigID,
				EffectiveDate:  date,
				FiscalYearCode: fyCode,
				Collision: func(ctx context.Context, candidate string) (bool, error) {
					return tx.NumberExists(ctx, actor.OrgID, docType.ID, candidate)
				},
			})
			if err != nil {
				return err
			}
			journal.Number = number
		}

		journal.PeriodID = period.ID
		journal.Date = date
		journal.Currency = currencyCode
		journal.ExchangeRate = rate
		journal.Reference = in.Header.Reference
		journal.Description = in.Header.Description

		lines, pending, pendingIdx, err := s.resolveLines(ctx, tx, docType, actor.OrgID, date, now, in.Lines)
		if err != nil {
			return err
		}
		journal.TotalDebit, journal.TotalCredit = sumLines(lines)

		switch in.Commit {
		case CommitSave:
			journal.Status = StatusDraft
		case CommitSubmit:
			// Submission for approval is not a posting event; an
			// unbalanced draft may still go out for review.
			journal.Status = StatusAwaitingApproval
		case CommitPost:
			if !journal.Balanced() {
				return ledger.E(ledger.KindBalance, "cannot post: debit %s does not equal credit %s",
					journal.TotalDebit.StringFixed(s.scales.Amount), journal.TotalCredit.StringFixed(s.scales.Amount))
			}
			journal.Status = StatusPosted
			postedAt := now
			journal.PostedAt = &postedAt
		}

		// Wholesale line replacement avoids duplicate-line artifacts on
		// resubmission.
		if journal.ID == 0 {
			if err := tx.InsertJournal(ctx, &journal); err != nil {
				return err
			}
		} else {
			if err := tx.UpdateJournal(ctx, &journal); err != nil {
				return err
			}
			if err := tx.DeleteLines(ctx, journal.ID); err != nil {
				return err
			}
		}
		inserted, err := tx.InsertLines(ctx, journal.ID, lines)
		if err != nil {
			return err
		}
		journal.Lines = inserted

		if len(pending) > 0 {
			for i := range pending {
				pending[i].JournalLineID = inserted[pendingIdx[i]].ID
			}
			journal.PendingInventory = pending
			if err := tx.UpdatePendingInventory(ctx, journal.ID, pending); err != nil {
				return err
			}
		}

		if journal.Status == StatusPosted {
			if err := tx.UpdateStatus(ctx, journal.ID, StatusPosted, journal.PostedAt); err != nil {
				return err
			}
			if err := tx.InsertGLRows(ctx, s.project(journal, now)); err != nil {
				return err
			}
		}
		result = journal
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	if replayed {
		return result, nil
	}

	if in.Commit == CommitPost && s.finalizer != nil {
		if err := s.finalizer.Finalize(ctx, result); err != nil {
			// Documented two-phase exception: the initial transaction
			// already committed, so remove the journal shell and say so
			// loudly. This is a compensating action, not silent loss.
			s.logger.Error("post finalization failed, deleting journal as compensation",
				slog.Int64("journal_id", result.ID), slog.String("number", result.Number), slog.Any("error", err))
			if delErr := s.repo.DeleteShell(ctx, result.OrgID, result.ID); delErr != nil {
				s.logger.Error("compensating delete failed", slog.Int64("journal_id", result.ID), slog.Any("error", delErr))
			}
			return Journal{}, ledger.Wrap(ledger.KindInternal, err, "post finalization failed; journal removed")
		}
	}

	s.recordAudit(ctx, actor, "journal."+string(in.Commit), result, map[string]any{
		"number": result.Number,
		"status": string(result.Status),
	})
	return result, nil
}

// Approve advances an awaiting journal. The balance invariant holds for
// every approved journal, so it is enforced here as well as at post.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, journalID int64) (Journal, error) {
	j, err := s.transition(ctx, actor, journalID, StatusApproved, func(j Journal) error {
		if !j.Balanced() {
			return ledger.E(ledger.KindBalance, "cannot approve: debit %s does not equal credit %s",
				j.TotalDebit.StringFixed(s.scales.Amount), j.TotalCredit.StringFixed(s.scales.Amount))
		}
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, actor, "journal.approve", j, nil)
	return j, nil
}

// Reject terminates an awaiting journal.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, journalID int64, reason string) (Journal, error) {
	j, err := s.transition(ctx, actor, journalID, StatusRejected, nil)
	if err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, actor, "journal.reject", j, map[string]any{"reason": reason})
	return j, nil
}

// Withdraw returns an awaiting journal to draft for further editing.
func (s *Service) Withdraw(ctx context.Context, actor shared.Actor, journalID int64) (Journal, error) {
	j, err := s.transition(ctx, actor, journalID, StatusDraft, nil)
	if err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, actor, "journal.withdraw", j, nil)
	return j, nil
}

// Post finalizes an approved journal and projects its GL rows.
func (s *Service) Post(ctx context.Context, actor shared.Actor, journalID int64) (Journal, error) {
	var result Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		j, err := tx.GetJournalWithLines(ctx, actor.OrgID, journalID)
		if err != nil {
			return err
		}
		if !CanTransition(j.Status, StatusPosted) {
			return ledger.E(ledger.KindState, "journal %s cannot move from %s to %s", j.Number, j.Status, StatusPosted)
		}
		if !j.Balanced() {
			return ledger.E(ledger.KindBalance, "cannot post: debit %s does not equal credit %s",
				j.TotalDebit.StringFixed(s.scales.Amount), j.TotalCredit.StringFixed(s.scales.Amount))
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, j.ID, StatusPosted, &now); err != nil {
			return err
		}
		j.Status = StatusPosted
		j.PostedAt = &now
		if err := tx.InsertGLRows(ctx, s.project(j, now)); err != nil {
			return err
		}
		result = j
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, actor, "journal.post", result, map[string]any{"number": result.Number})
	return result, nil
}

// Reverse creates and posts a reversing journal with swapped legs, then
// marks the original reversed. GL rows are never edited: the reversal
// projects new ones.
func (s *Service) Reverse(ctx context.Context, actor shared.Actor, journalID int64, memo string) (Journal, error) {
	var reversal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetJournalWithLines(ctx, actor.OrgID, journalID)
		if err != nil {
			return err
		}
		if !CanTransition(original.Status, StatusReversed) {
			return ledger.E(ledger.KindState, "journal %s cannot be reversed from %s", original.Number, original.Status)
		}
		docType, err := tx.GetDocType(ctx, actor.OrgID, original.DocTypeID)
		if err != nil {
			return err
		}
		now := s.now()
		period, err := tx.FindOpenPeriodByDate(ctx, actor.OrgID, now)
		if err != nil {
			return err
		}
		fyCode := ""
		if fy, err := tx.FiscalYearByDate(ctx, actor.OrgID, now); err == nil {
			fyCode = fy.Code
		} else if ledger.KindOf(err) != ledger.KindPeriod {
			return err
		}
		number, err := s.seq.Next(ctx, tx, sequence.Request{
			ConfigID:       docType.SequenceConfigID,
			EffectiveDate:  now,
			FiscalYearCode: fyCode,
			Collision: func(ctx context.Context, candidate string) (bool, error) {
				return tx.NumberExists(ctx, actor.OrgID, docType.ID, candidate)
			},
		})
		if err != nil {
			return err
		}
		if memo == "" {
			memo = "Reversal of " + original.Number
		}
		postedAt := now
		rev := Journal{
			OrgID:        actor.OrgID,
			DocTypeID:    original.DocTypeID,
			PeriodID:     period.ID,
			Number:       number,
			Date:         now,
			Currency:     original.Currency,
			ExchangeRate: original.ExchangeRate,
			Reference:    original.Number,
			Description:  memo,
			TotalDebit:   original.TotalCredit,
			TotalCredit:  original.TotalDebit,
			Status:       StatusPosted,
			SourceModule: original.SourceModule + ":REVERSAL",
			SourceRef:    uuid.New(),
			ReversalOfID: &original.ID,
			CreatedBy:    actor.ID,
			PostedAt:     &postedAt,
		}
		if err := tx.InsertJournal(ctx, &rev); err != nil {
			return err
		}
		inserted, err := tx.InsertLines(ctx, rev.ID, swapLines(original.Lines))
		if err != nil {
			return err
		}
		rev.Lines = inserted
		if err := tx.InsertGLRows(ctx, s.project(rev, now)); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, original.ID, StatusReversed, nil); err != nil {
			return err
		}
		reversal = rev
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.recordAudit(ctx, actor, "journal.reverse", reversal, map[string]any{
		"reversal_of": journalID,
		"number":      reversal.Number,
	})
	return reversal, nil
}

// transition applies a status-only change under the row lock.
func (s *Service) transition(ctx context.Context, actor shared.Actor, journalID int64, target JournalStatus, check func(Journal) error) (Journal, error) {
	var result Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		j, err := tx.GetJournalWithLines(ctx, actor.OrgID, journalID)
		if err != nil {
			return err
		}
		if !CanTransition(j.Status, target) {
			return ledger.E(ledger.KindState, "journal %s cannot move from %s to %s", j.Number, j.Status, target)
		}
		if check != nil {
			if err := check(j); err != nil {
				return err
			}
		}
		if err := tx.UpdateStatus(ctx, j.ID, target, nil); err != nil {
			return err
		}
		j.Status = target
		result = j
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	return result, nil
}

// resolveLines turns raw line inputs into persisted-shape lines plus
// prepared inventory transactions. pendingIdx aligns each pending
// transaction with the index of the line that produced it.
func (s *Service) resolveLines(ctx context.Context, tx TxRepository, docType DocTypeConfig, orgID int64, date, now time.Time, inputs []LineInput) ([]Line, []inventory.PendingTransaction, []int, error) {
	var lines []Line
	var pending []inventory.PendingTransaction
	var pendingIdx []int
	for _, in := range inputs {
		if in.Deleted || in.blank() {
			continue
		}
		lineNo := len(lines) + 1
		if err := validateAmounts(lineNo, in); err != nil {
			return nil, nil, nil, err
		}
		acc, err := accounts.ResolveAccount(ctx, tx, orgID, in.AccountRef)
		if err != nil {
			return nil, nil, nil, err
		}
		line := Line{
			LineNumber:  lineNo,
			AccountID:   acc.ID,
			Debit:       s.scales.RoundAmount(in.Debit),
			Credit:      s.scales.RoundAmount(in.Credit),
			Description: in.Description,
			TxnAmount:   in.TxnAmount,
		}
		if in.TxnRate != nil {
			r := s.scales.RoundRate(*in.TxnRate)
			line.TxnRate = &r
		}
		if in.DepartmentRef != "" {
			dim, err := accounts.ResolveDimension(ctx, tx, orgID, accounts.DimensionDepartment, in.DepartmentRef)
			if err != nil {
				return nil, nil, nil, err
			}
			line.DepartmentID = &dim.ID
		}
		if in.ProjectRef != "" {
			dim, err := accounts.ResolveDimension(ctx, tx, orgID, accounts.DimensionProject, in.ProjectRef)
			if err != nil {
				return nil, nil, nil, err
			}
			line.ProjectID = &dim.ID
		}
		if in.CostCenterRef != "" {
			dim, err := accounts.ResolveDimension(ctx, tx, orgID, accounts.DimensionCostCenter, in.CostCenterRef)
			if err != nil {
				return nil, nil, nil, err
			}
			line.CostCenterID = &dim.ID
		}
		if err := validateRequiredDimensions(lineNo, acc, line); err != nil {
			return nil, nil, nil, err
		}
		if in.TaxCodeID != nil {
			code, err := s.taxes.CodeByID(ctx, orgID, *in.TaxCodeID, date)
			if err != nil {
				return nil, nil, nil, err
			}
			base := line.Debit
			if base.IsZero() {
				base = line.Credit
			}
			breakdown := s.taxes.CalculateLineTaxes(base, []tax.Code{code}, date)
			line.TaxCodeID = in.TaxCodeID
			line.TaxAmount = tax.TotalTax(breakdown)
		}
		if docType.AffectsInventory && in.ProductID != 0 {
			req := inventory.LineRequest{
				TxnType:       in.TxnType,
				ProductID:     in.ProductID,
				WarehouseID:   in.WarehouseID,
				Quantity:      in.Quantity,
				UnitCost:      in.UnitCost,
				LocationID:    in.LocationID,
				BatchID:       in.BatchID,
				LineAccountID: acc.ID,
			}
			if docType.GRIRAccountID != nil {
				req.GRIRAccountID = *docType.GRIRAccountID
			}
			if docType.COGSAccountID != nil {
				req.COGSAccountID = *docType.COGSAccountID
			}
			pt, err := inventory.Prepare(ctx, tx, orgID, req, now)
			if err != nil {
				return nil, nil, nil, err
			}
			pending = append(pending, pt)
			pendingIdx = append(pendingIdx, len(lines))
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, nil, nil, ledger.E(ledger.KindLine, "voucher requires at least one line")
	}
	return lines, pending, pendingIdx, nil
}

func (s *Service) project(j Journal, now time.Time) []gl.Row {
	src := gl.SourceJournal{
		JournalID:    j.ID,
		OrgID:        j.OrgID,
		PeriodID:     j.PeriodID,
		Number:       j.Number,
		Date:         j.Date,
		Currency:     j.Currency,
		ExchangeRate: j.ExchangeRate,
		SourceModule: j.SourceModule,
		SourceRef:    j.SourceRef,
	}
	lines := make([]gl.SourceLine, 0, len(j.Lines))
	for _, l := range j.Lines {
		lines = append(lines, gl.SourceLine{
			LineID:       l.ID,
			AccountID:    l.AccountID,
			Debit:        l.Debit,
			Credit:       l.Credit,
			DepartmentID: l.DepartmentID,
			ProjectID:    l.ProjectID,
			CostCenterID: l.CostCenterID,
		})
	}
	return s.projector.Project(src, lines, now)
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, j Journal, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   j.EntityKind(),
		EntityID: j.EntityID(),
		Meta:     meta,
		At:       s.now(),
	})
}

func resolveCurrency(ctx context.Context, tx TxRepository, orgID int64, code string) (string, error) {
	if code == "" {
		return tx.OrgBaseCurrency(ctx, orgID)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", ledger.E(ledger.KindLine, "currency %q is not a valid ISO code", code)
	}
	return unit.String(), nil
}

func sumLines(lines []Line) (decimal.Decimal, decimal.Decimal) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func swapLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for i, l := range lines {
		out = append(out, Line{
			LineNumber:   i + 1,
			AccountID:    l.AccountID,
			Debit:        l.Credit,
			Credit:       l.Debit,
			Description:  l.Description,
			DepartmentID: l.DepartmentID,
			ProjectID:    l.ProjectID,
			CostCenterID: l.CostCenterID,
			TaxCodeID:    l.TaxCodeID,
			TaxAmount:    l.TaxAmount,
			TxnAmount:    l.TxnAmount,
			TxnRate:      l.TxnRate,
		})
	}
	return out
}
