/*
engine.go - Append, edit, and remove operations over a ledger store

PURPOSE:
  The Engine is the only writer of ledger state. Every mutation loads the
  case and its entries inside one storage transaction, re-derives the
  affected suffix of snapshots with Replay, and folds the results back into
  the case aggregates. A failure anywhere (overpayment mid-walk, storage
  error) rolls the whole transaction back with no partial writes.

OPERATIONS:
  CreateCase: Judgment baseline; no entries yet.
  Append:     New entry anchored on the last active entry strictly before
              its date (or the baseline). When the new entry is not the
              latest, the downstream suffix is replayed too, so a backdated
              append cannot leave stale snapshots behind.
  Edit:       In-place change of an entry's date/type/amount/description,
              followed by a suffix replay from the earlier of the old and
              new dates.
  Remove:     Soft delete of an entry, followed by a suffix replay of what
              remains. Entries are never physically deleted.

ANCHORING:
  Entry N's snapshots are always derivable from entry N-1's snapshots (or
  the baseline) plus entry N's own event. Resolution is strictly
  left-to-right; there is no out-of-order resolution.

SEE ALSO:
  - replay.go: The deterministic fold the operations share
  - aggregate.go: Case summary fields recomputed after every walk
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Engine coordinates ledger mutations against a transactional store.
type Engine struct {
	Store     TxStore
	Precision Precision

	// Now supplies "today" for payoff projection. Overridable in tests.
	Now func() Date
}

func NewEngine(store TxStore) *Engine {
	return &Engine{Store: store, Precision: DefaultPrecision, Now: Today}
}

// =============================================================================
// CASE LIFECYCLE
// =============================================================================

// CaseParams describes a new judgment debt.
type CaseParams struct {
	Name            string
	CourtName       string
	CourtCaseNumber string

	JudgmentAmount      decimal.Decimal
	InterestRatePercent decimal.Decimal
	JudgmentDate        Date
}

// CreateCase persists a new case at its judgment baseline.
func (g *Engine) CreateCase(ctx context.Context, p CaseParams) (*Case, error) {
	if p.JudgmentAmount.IsNegative() || p.JudgmentAmount.IsZero() {
		return nil, &InvalidEventError{Reason: "judgment amount must be positive"}
	}
	if p.InterestRatePercent.IsNegative() {
		return nil, &InvalidEventError{Reason: "interest rate must not be negative"}
	}
	if p.JudgmentDate.IsZero() {
		return nil, &InvalidEventError{Reason: "judgment date is required"}
	}

	now := time.Now().UTC()
	c := &Case{
		ID:                  NewCaseID(),
		Name:                p.Name,
		CourtName:           p.CourtName,
		CourtCaseNumber:     p.CourtCaseNumber,
		JudgmentAmount:      p.JudgmentAmount,
		InterestRatePercent: p.InterestRatePercent,
		JudgmentDate:        p.JudgmentDate,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	UpdateAggregates(c, nil, g.Now(), g.Precision)

	if err := g.Store.CreateCase(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Case returns an active case with its TodayPayoff projected to the
// current date. Soft-deleted cases are reported as not found.
func (g *Engine) Case(ctx context.Context, id CaseID) (*Case, error) {
	c, err := g.Store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, fmt.Errorf("case %s: %w", id, ErrCaseNotFound)
	}

	// Projection is display-only: recompute it at read time so stored
	// aggregates never go stale between mutations.
	entries, err := g.Store.LoadEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	last := c.Baseline()
	if active := activeOnly(entries); len(active) > 0 {
		last = active[len(active)-1].Snapshot()
	}
	c.TodayPayoff = ProjectPayoff(c, last, g.Now(), g.Precision)
	return c, nil
}

// Cases returns all active cases.
func (g *Engine) Cases(ctx context.Context) ([]*Case, error) {
	return g.Store.ListCases(ctx)
}

// RemoveCase soft-deletes a case, freezing its ledger from further mutation.
func (g *Engine) RemoveCase(ctx context.Context, id CaseID) error {
	return g.Store.WithTx(ctx, func(s Store) error {
		c, err := s.GetCase(ctx, id)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return fmt.Errorf("case %s: %w", id, ErrCaseNotFound)
		}
		c.IsActive = false
		c.UpdatedAt = time.Now().UTC()
		return s.UpdateCase(ctx, c)
	})
}

// Entries returns the ordered active entries of a case.
func (g *Engine) Entries(ctx context.Context, caseID CaseID) ([]*Entry, error) {
	c, err := g.Store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, fmt.Errorf("case %s: %w", caseID, ErrCaseNotFound)
	}
	entries, err := g.Store.LoadEntries(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return activeOnly(entries), nil
}

// =============================================================================
// APPEND
// =============================================================================

// Append creates a new entry for the case and returns it along with the
// updated case aggregates. The whole operation is one transaction; on any
// error no entry is created and no aggregate changes.
func (g *Engine) Append(ctx context.Context, caseID CaseID, ev Event) (*Entry, *Case, error) {
	if err := ValidateEvent(ev); err != nil {
		return nil, nil, err
	}

	var (
		entry *Entry
		c     *Case
	)
	err := g.Store.WithTx(ctx, func(s Store) error {
		var err error
		c, err = g.mutableCase(ctx, s, caseID)
		if err != nil {
			return err
		}

		all, err := s.LoadEntries(ctx, caseID)
		if err != nil {
			return err
		}
		active := activeOnly(all)
		if dup := entryOnDate(active, ev.Date, ""); dup != nil {
			return &DuplicateDateError{CaseID: caseID, Date: ev.Date, ExistingID: dup.ID}
		}

		now := time.Now().UTC()
		entry = &Entry{
			ID:          NewEntryID(),
			CaseID:      caseID,
			Type:        ev.Type,
			Amount:      ev.Amount,
			Date:        ev.Date,
			Description: ev.Description,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.InsertEntry(ctx, entry); err != nil {
			return err
		}

		active, idx := insertOrdered(active, entry)
		return g.replayAndPersist(ctx, s, c, active, idx)
	})
	if err != nil {
		return nil, nil, err
	}
	return entry, c, nil
}

// =============================================================================
// EDIT
// =============================================================================

// Edit mutates an entry in place and replays the chronological suffix so
// every downstream snapshot stays derivable from its predecessor. The
// replay starts at the earlier of the entry's old and new dates: moving an
// entry forward must also fix the window it vacated.
func (g *Engine) Edit(ctx context.Context, entryID EntryID, changes EntryChanges) (*Entry, *Case, error) {
	var (
		entry *Entry
		c     *Case
	)
	err := g.Store.WithTx(ctx, func(s Store) error {
		var err error
		entry, err = s.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if !entry.IsActive {
			return fmt.Errorf("entry %s: %w", entryID, ErrEntryNotFound)
		}
		c, err = g.mutableCase(ctx, s, entry.CaseID)
		if err != nil {
			return err
		}

		oldDate := entry.Date
		applyChanges(entry, changes)
		if err := ValidateEvent(entry.Event()); err != nil {
			return err
		}

		all, err := s.LoadEntries(ctx, entry.CaseID)
		if err != nil {
			return err
		}
		active := activeExcluding(all, entry.ID)
		if dup := entryOnDate(active, entry.Date, entry.ID); dup != nil {
			return &DuplicateDateError{CaseID: entry.CaseID, Date: entry.Date, ExistingID: dup.ID}
		}

		entry.UpdatedAt = time.Now().UTC()
		active, _ = insertOrdered(active, entry)

		from := oldDate
		if entry.Date.Before(from) {
			from = entry.Date
		}
		return g.replayAndPersist(ctx, s, c, active, firstOnOrAfter(active, from))
	})
	if err != nil {
		return nil, nil, err
	}
	return entry, c, nil
}

// =============================================================================
// REMOVE
// =============================================================================

// Remove soft-deletes an entry and replays the suffix of what remains.
// The entry stays stored for audit but no longer anchors anything.
func (g *Engine) Remove(ctx context.Context, entryID EntryID) (*Case, error) {
	var c *Case
	err := g.Store.WithTx(ctx, func(s Store) error {
		entry, err := s.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if !entry.IsActive {
			return fmt.Errorf("entry %s: %w", entryID, ErrEntryNotFound)
		}
		c, err = g.mutableCase(ctx, s, entry.CaseID)
		if err != nil {
			return err
		}

		entry.IsActive = false
		entry.UpdatedAt = time.Now().UTC()
		if err := s.UpdateEntry(ctx, entry); err != nil {
			return err
		}

		all, err := s.LoadEntries(ctx, entry.CaseID)
		if err != nil {
			return err
		}
		active := activeExcluding(all, entry.ID)
		return g.replayAndPersist(ctx, s, c, active, firstOnOrAfter(active, entry.Date))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// =============================================================================
// SHARED WALK
// =============================================================================

// replayAndPersist replays active[idx:] from its anchor, persists every
// rewritten entry, and refreshes the case aggregates.
func (g *Engine) replayAndPersist(ctx context.Context, s Store, c *Case, active []*Entry, idx int) error {
	suffix := active[idx:]
	if err := Replay(anchorBefore(c, active, idx), c.InterestRatePercent, suffix, g.Precision); err != nil {
		return err
	}
	for _, e := range suffix {
		if err := s.UpdateEntry(ctx, e); err != nil {
			return err
		}
	}

	UpdateAggregates(c, active, g.Now(), g.Precision)
	c.UpdatedAt = time.Now().UTC()
	return s.UpdateCase(ctx, c)
}

// mutableCase loads a case and refuses mutation when it is soft-deleted.
func (g *Engine) mutableCase(ctx context.Context, s Store, id CaseID) (*Case, error) {
	c, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, fmt.Errorf("case %s: %w", id, ErrCaseInactive)
	}
	return c, nil
}

func applyChanges(e *Entry, ch EntryChanges) {
	if ch.Type != nil {
		e.Type = *ch.Type
	}
	if ch.Amount != nil {
		e.Amount = *ch.Amount
	}
	if ch.Date != nil {
		e.Date = *ch.Date
	}
	if ch.Description != nil {
		e.Description = *ch.Description
	}
}

// =============================================================================
// ORDERED SLICE HELPERS
// =============================================================================

func activeOnly(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out
}

func activeExcluding(entries []*Entry, skip EntryID) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive && e.ID != skip {
			out = append(out, e)
		}
	}
	return out
}

// entryOnDate finds an active entry on the given date, skipping the entry
// being edited itself.
func entryOnDate(active []*Entry, date Date, skip EntryID) *Entry {
	for _, e := range active {
		if e.ID != skip && e.Date.Equal(date) {
			return e
		}
	}
	return nil
}

// entryBefore reports whether a sorts strictly before b in the total
// ledger order: by date, then by store-assigned insertion order.
func entryBefore(a, b *Entry) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.Seq < b.Seq
}

// insertOrdered places e into an ordered active slice at its position in
// the total order, returning the new slice and e's index.
func insertOrdered(active []*Entry, e *Entry) ([]*Entry, int) {
	idx := sort.Search(len(active), func(i int) bool { return entryBefore(e, active[i]) })
	active = append(active, nil)
	copy(active[idx+1:], active[idx:])
	active[idx] = e
	return active, idx
}

// firstOnOrAfter returns the index of the first entry dated on or after d.
func firstOnOrAfter(active []*Entry, d Date) int {
	return sort.Search(len(active), func(i int) bool { return active[i].Date.AfterOrEqual(d) })
}
