package giveaway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"giveaway-bot/giveawaybot/storage"
)

const (
	activeChangeNote  = "Update active giveaways"
	historyChangeNote = "Update giveaway history"
)

// Repository owns the two persisted documents. Every operation is a
// full-document read-modify-write; a mutex per collection serializes
// them, so concurrent enrollments (or an enrollment racing a closure)
// can never lose an update. This process is the only writer.
type Repository struct {
	store storage.Store

	activeMu  sync.Mutex
	historyMu sync.Mutex
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) loadActive(ctx context.Context) (*activeDocument, error) {
	raw, err := r.store.Get(ctx, ActiveKey)
	if err != nil {
		return nil, &PersistenceError{Op: "load active giveaways", Err: err}
	}

	doc := new(activeDocument)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, &PersistenceError{Op: "decode active giveaways", Err: err}
		}
	}
	return doc, nil
}

func (r *Repository) saveActive(ctx context.Context, doc *activeDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &PersistenceError{Op: "encode active giveaways", Err: err}
	}
	if err := r.store.Save(ctx, ActiveKey, raw, activeChangeNote); err != nil {
		return &PersistenceError{Op: "save active giveaways", Err: err}
	}
	return nil
}

func (r *Repository) loadHistory(ctx context.Context) (*historyDocument, error) {
	raw, err := r.store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, &PersistenceError{Op: "load giveaway history", Err: err}
	}

	doc := new(historyDocument)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, &PersistenceError{Op: "decode giveaway history", Err: err}
		}
	}
	return doc, nil
}

func (r *Repository) saveHistory(ctx context.Context, doc *historyDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &PersistenceError{Op: "encode giveaway history", Err: err}
	}
	if err := r.store.Save(ctx, HistoryKey, raw, historyChangeNote); err != nil {
		return &PersistenceError{Op: "save giveaway history", Err: err}
	}
	return nil
}

// ListActive returns the current active set, empty if the document has
// never been written.
func (r *Repository) ListActive(ctx context.Context) ([]*Giveaway, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	doc, err := r.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Giveaways, nil
}

func (r *Repository) CreateActive(ctx context.Context, g *Giveaway) error {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	doc, err := r.loadActive(ctx)
	if err != nil {
		return err
	}
	doc.Giveaways = append(doc.Giveaways, g)
	return r.saveActive(ctx, doc)
}

func (r *Repository) FindActive(ctx context.Context, id string) (*Giveaway, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	doc, err := r.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range doc.Giveaways {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateActive applies mutate to the giveaway with the given id and
// writes the whole document back. A mutate error aborts without saving.
func (r *Repository) UpdateActive(ctx context.Context, id string, mutate func(*Giveaway) error) (*Giveaway, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	doc, err := r.loadActive(ctx)
	if err != nil {
		return nil, err
	}

	for _, g := range doc.Giveaways {
		if g.ID != id {
			continue
		}
		if err := mutate(g); err != nil {
			return nil, err
		}
		if err := r.saveActive(ctx, doc); err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, ErrNotFound
}

func (r *Repository) RemoveActive(ctx context.Context, id string) error {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	doc, err := r.loadActive(ctx)
	if err != nil {
		return err
	}
	kept, removed := removeByID(doc.Giveaways, id)
	if !removed {
		return ErrNotFound
	}
	doc.Giveaways = kept
	return r.saveActive(ctx, doc)
}

func (r *Repository) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	doc, err := r.loadHistory(ctx)
	if err != nil {
		return err
	}
	doc.History = append(doc.History, rec)
	return r.saveHistory(ctx, doc)
}

// History returns all closed giveaways, oldest first.
func (r *Repository) History(ctx context.Context) ([]*HistoryRecord, error) {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	doc, err := r.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	return doc.History, nil
}

// Archive moves one giveaway from active to history. build turns the
// active entry into its history record and may veto the closure by
// returning an error (nothing is written then). History is saved first;
// if the active save fails afterwards the previous history document is
// restored, so a failed closure leaves the giveaway Active for a later
// retry. Both locks are held throughout, no reader in this process can
// observe the intermediate state.
func (r *Repository) Archive(ctx context.Context, id string, build func(*Giveaway) (*HistoryRecord, error)) (*HistoryRecord, error) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	active, err := r.loadActive(ctx)
	if err != nil {
		return nil, err
	}

	var target *Giveaway
	for _, g := range active.Giveaways {
		if g.ID == id {
			target = g
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	rec, err := build(target)
	if err != nil {
		return nil, err
	}

	history, err := r.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	previous := historyDocument{History: history.History}
	history.History = append(history.History, rec)

	if err := r.saveHistory(ctx, history); err != nil {
		return nil, err
	}

	kept, _ := removeByID(active.Giveaways, id)
	active.Giveaways = kept
	if err := r.saveActive(ctx, active); err != nil {
		if rbErr := r.saveHistory(ctx, &previous); rbErr != nil {
			slog.Error("Failed to roll back history after active save failure, giveaway is duplicated",
				slog.String("type", "store"),
				slog.String("giveaway_id", id),
				slog.Any("error", rbErr))
		}
		return nil, err
	}

	return rec, nil
}

func removeByID(giveaways []*Giveaway, id string) ([]*Giveaway, bool) {
	for i, g := range giveaways {
		if g.ID == id {
			return append(giveaways[:i], giveaways[i+1:]...), true
		}
	}
	return giveaways, false
}
