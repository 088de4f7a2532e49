// Package reconcile drives the converter over one batch of incoming
// external records and applies each result to a destination store as an
// upsert or removal.
//
// Records within a batch are independent units of work: they are converted
// and committed concurrently with no ordering guarantee, and a failure in
// one record is logged at that record's granularity without affecting its
// siblings. A batch as a whole always completes.
package reconcile

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"

	"gcalsync/internal/convert"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/model"
)

// Store is the destination storage collaborator. Upserts are keyed by
// stable item id; no ordering or idempotency beyond last-write-wins is
// assumed of it.
type Store interface {
	Upsert(ctx context.Context, item *model.Item) error
	Remove(ctx context.Context, id string) error
}

// Settings is the preference collaborator. Both values are read once per
// reconciliation call, never per record, so every record in a batch
// observes the same snapshot.
type Settings interface {
	RestrictedAccess(ctx context.Context) (bool, error)
	DefaultReminders(ctx context.Context) ([]*calendar.EventReminder, error)
}

// Localizer resolves the placeholder title shown for restricted calendars.
type Localizer interface {
	BusyTitle() string
}

// Summary reports what one batch did. Failed records are already logged;
// the batch itself never fails because of them.
type Summary struct {
	Upserted int
	Removed  int
	Failed   int
}

// Reconciler applies batches of external records to the destination store.
type Reconciler struct {
	store    Store
	settings Settings
	loc      Localizer

	// byID retains converted items per record id. Recurrence exceptions
	// are committed as independent items for now; the map keeps them
	// addressable for future master/exception linking.
	mu   sync.Mutex
	byID map[string]*model.Item
}

// New builds a Reconciler over the given collaborators.
func New(store Store, settings Settings, loc Localizer) *Reconciler {
	return &Reconciler{
		store:    store,
		settings: settings,
		loc:      loc,
		byID:     make(map[string]*model.Item),
	}
}

// options snapshots the per-batch conversion context.
func (r *Reconciler) options(ctx context.Context) (convert.Options, error) {
	restricted, err := r.settings.RestrictedAccess(ctx)
	if err != nil {
		return convert.Options{}, err
	}
	defaults, err := r.settings.DefaultReminders(ctx)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		RestrictedAccess: restricted,
		BusyTitle:        r.loc.BusyTitle(),
		DefaultReminders: defaults,
	}, nil
}

// ReconcileEvents converts and commits one batch of event records.
func (r *Reconciler) ReconcileEvents(ctx context.Context, events []*calendar.Event) Summary {
	opts, err := r.options(ctx)
	if err != nil {
		appLog.Error("reconcile: settings read failed, skipping batch", err, "records", len(events))
		return Summary{Failed: len(events)}
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sum Summary
	)
	for _, ev := range events {
		if ev == nil {
			continue
		}
		wg.Add(1)
		go func(ev *calendar.Event) {
			defer wg.Done()

			item, cerr := convert.EventToItem(ev, opts)
			if cerr != nil {
				appLog.Error("reconcile: event convert failed", cerr, "id", ev.Id)
				mu.Lock()
				sum.Failed++
				mu.Unlock()
				return
			}
			if ev.OriginalStartTime != nil {
				// Recurrence exception: committed exactly like a master
				// record, only remembered for later linking.
				appLog.Debug("reconcile: exception committed as independent item", "id", ev.Id)
			}
			r.remember(ev.Id, item)

			removed, cmErr := r.commit(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case cmErr != nil:
				appLog.Error("reconcile: event commit failed", cmErr, "id", item.ID)
				sum.Failed++
			case removed:
				sum.Removed++
			default:
				sum.Upserted++
			}
		}(ev)
	}
	wg.Wait()

	appLog.Info("reconcile: event batch done",
		"upserted", sum.Upserted, "removed", sum.Removed, "failed", sum.Failed)
	return sum
}

// ReconcileTasks converts and commits one batch of task records. Tasks have
// no cross-record dependencies at all.
func (r *Reconciler) ReconcileTasks(ctx context.Context, records []*tasks.Task) Summary {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sum Summary
	)
	for _, t := range records {
		if t == nil {
			continue
		}
		wg.Add(1)
		go func(t *tasks.Task) {
			defer wg.Done()

			item, cerr := convert.TaskToItem(t)
			if cerr != nil {
				appLog.Error("reconcile: task convert failed", cerr, "id", t.Id)
				mu.Lock()
				sum.Failed++
				mu.Unlock()
				return
			}
			r.remember(t.Id, item)

			removed, cmErr := r.commit(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case cmErr != nil:
				appLog.Error("reconcile: task commit failed", cmErr, "id", item.ID)
				sum.Failed++
			case removed:
				sum.Removed++
			default:
				sum.Upserted++
			}
		}(t)
	}
	wg.Wait()

	appLog.Info("reconcile: task batch done",
		"upserted", sum.Upserted, "removed", sum.Removed, "failed", sum.Failed)
	return sum
}

// commit routes one converted item to the store: a terminal cancelled
// status becomes a removal keyed by item id, everything else an upsert of
// the full item.
func (r *Reconciler) commit(ctx context.Context, item *model.Item) (removed bool, err error) {
	root, err := item.Root()
	if err != nil {
		return false, err
	}
	if strings.ToUpper(root.Text("status")) == "CANCELLED" {
		return true, r.store.Remove(ctx, item.ID)
	}
	return false, r.store.Upsert(ctx, item)
}

func (r *Reconciler) remember(id string, item *model.Item) {
	r.mu.Lock()
	r.byID[id] = item
	r.mu.Unlock()
}

// Lookup returns the most recently converted item for a record id.
func (r *Reconciler) Lookup(id string) (*model.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	return item, ok
}
