package registry

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
)

// Registry holds one owner's draft sessions and the active one. It is not
// safe for concurrent use; Service serializes access per owner.
type Registry struct {
	ownerID        string
	active         *draft.Session
	activeRentalID string
	sessions       map[string]*draft.Session
	persist        func(ctx context.Context, snap *Snapshot) error
	activities     ActivityRecorder
}

func newRegistry(ownerID string, snap *Snapshot, persist func(context.Context, *Snapshot) error, activities ActivityRecorder) *Registry {
	r := &Registry{
		ownerID:    ownerID,
		sessions:   make(map[string]*draft.Session),
		persist:    persist,
		activities: activities,
	}
	if snap != nil {
		for id, sess := range snap.RentalSessions {
			if sess != nil {
				r.sessions[id] = sess
			}
		}
		r.active = snap.OngoingCreate
		r.activeRentalID = snap.ActiveRentalID
	}
	if r.active == nil {
		r.active = draft.NewSession(time.Now())
		r.activeRentalID = ""
	}
	if _, ok := r.sessions[r.active.ID]; !ok {
		r.sessions[r.active.ID] = r.active.Clone()
	}
	return r
}

// Active returns the live active session. Mutations must be followed by Save.
func (r *Registry) Active() *draft.Session {
	return r.active
}

// ActiveRentalID returns the remote id of the active session, if assigned.
func (r *Registry) ActiveRentalID() string {
	return r.activeRentalID
}

// Get returns the stored snapshot of a session.
func (r *Registry) Get(id string) (*draft.Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// StartNew creates a fresh session, makes it active and registers it.
func (r *Registry) StartNew(ctx context.Context) (*draft.Session, error) {
	r.active = draft.NewSession(time.Now())
	r.activeRentalID = ""
	r.record(ctx, activity.TypeSessionStarted, nil, "started new draft")
	return r.active, r.Save(ctx)
}

// SwitchTo makes a registered session active and mirrors its remote id.
func (r *Registry) SwitchTo(ctx context.Context, id string) error {
	sess, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	r.active = sess.Clone()
	r.activeRentalID, _ = r.active.Anchor.RemoteID()
	r.record(ctx, activity.TypeSessionSwitched, nil, "switched to "+r.active.Title())
	return r.persistState(ctx)
}

// Save snapshots the active session under its id and persists the registry.
func (r *Registry) Save(ctx context.Context) error {
	r.sessions[r.active.ID] = r.active.Clone()
	return r.persistState(ctx)
}

// Delete removes a session and returns it. Deleting the active session
// starts a new one.
func (r *Registry) Delete(ctx context.Context, id string) (*draft.Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.active.ID == id {
		sess = r.active
	}
	delete(r.sessions, id)
	r.recordFor(ctx, id, activity.TypeSessionDeleted, nil, "deleted "+sess.Title())
	if r.active.ID == id {
		_, err := r.StartNew(ctx)
		return sess, err
	}
	return sess, r.persistState(ctx)
}

// List yields a summary per registered session, newest first. Each range
// over the sequence reads the registry afresh.
func (r *Registry) List() iter.Seq[draft.Summary] {
	return func(yield func(draft.Summary) bool) {
		ordered := slices.SortedFunc(maps.Values(r.sessions), func(a, b *draft.Session) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, sess := range ordered {
			if !yield(sess.Summarize()) {
				return
			}
		}
	}
}

// SetSection replaces one section of the active session and saves.
func (r *Registry) SetSection(ctx context.Context, data draft.Payload) error {
	if err := r.active.Set(data, time.Now()); err != nil {
		return err
	}
	kind := string(data.Kind())
	r.record(ctx, activity.TypeSectionEdited, &kind, "edited "+kind)
	return r.Save(ctx)
}

// AddFiles appends file handles to the active session and saves.
func (r *Registry) AddFiles(ctx context.Context, handles ...draft.FileHandle) error {
	if err := r.active.AddFiles(time.Now(), handles...); err != nil {
		return err
	}
	kind := string(draft.KindFiles)
	r.record(ctx, activity.TypeSectionEdited, &kind, "added files")
	return r.Save(ctx)
}

// RemoveFile drops a file handle from the active session and saves.
func (r *Registry) RemoveFile(ctx context.Context, fileID string) (draft.FileHandle, error) {
	removed, err := r.active.RemoveFile(fileID, time.Now())
	if err != nil {
		return draft.FileHandle{}, err
	}
	kind := string(draft.KindFiles)
	r.record(ctx, activity.TypeSectionEdited, &kind, "removed "+removed.Name)
	return removed, r.Save(ctx)
}

// Reset replaces the active session with a fresh unanchored one. The
// previous session stays registered under its own id.
func (r *Registry) Reset(ctx context.Context) error {
	r.record(ctx, activity.TypeSessionReset, nil, "reset draft")
	r.active = draft.NewSession(time.Now())
	r.activeRentalID = ""
	return r.Save(ctx)
}

// Anchor binds the active session to a remote listing id.
func (r *Registry) Anchor(remoteID string) {
	r.active.Anchor = draft.AnchoredTo(remoteID)
	r.activeRentalID = remoteID
}

// MarkClean clears the unsaved-changes flag of the active session.
func (r *Registry) MarkClean() {
	r.active.HasUnsavedChanges = false
}

// Record logs an event against the active session.
func (r *Registry) Record(ctx context.Context, typ activity.ActivityType, section *string, summary string) {
	r.record(ctx, typ, section, summary)
}

func (r *Registry) persistState(ctx context.Context) error {
	if r.persist == nil {
		return nil
	}
	return r.persist(ctx, &Snapshot{
		OngoingCreate:  r.active,
		ActiveRentalID: r.activeRentalID,
		RentalSessions: r.sessions,
		SavedAt:        time.Now(),
	})
}

func (r *Registry) record(ctx context.Context, typ activity.ActivityType, section *string, summary string) {
	r.recordFor(ctx, r.active.ID, typ, section, summary)
}

func (r *Registry) recordFor(ctx context.Context, sessionID string, typ activity.ActivityType, section *string, summary string) {
	if r.activities == nil {
		return
	}
	r.activities.Record(ctx, r.ownerID, &activity.ActivityEntry{
		SessionID:    sessionID,
		Section:      section,
		ActivityType: typ,
		Summary:      summary,
	})
}
