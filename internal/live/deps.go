// Package live keeps user-scoped views of tasks, journal entries and habits
// in sync with the document store.
//
// Each view subscribes to one query, decrypts text on every snapshot and
// applies optimistic patches locally before writing. Snapshots always
// replace the local list, so a patch and the echo of its write converge.
// Write failures are logged and reported to Deps.OnError; view methods never
// return them.
package live

import (
	"context"
	"time"

	"github.com/julianstephens/agenda/internal/crypto"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/undo"
)

// Deps are the collaborators shared by every view
type Deps struct {
	Store  storage.Provider
	Crypto *crypto.Adapter
	Undo   *undo.Coordinator
	UserID string
	// Now defaults to time.Now
	Now func() time.Time
	// OnError receives write failures after they are logged
	OnError func(op string, err error)
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) encrypt(s string) string {
	if d.Crypto == nil {
		return s
	}
	return d.Crypto.Encrypt(s, d.UserID)
}

func (d Deps) decrypt(s string) string {
	if d.Crypto == nil {
		return s
	}
	return d.Crypto.Decrypt(s, d.UserID)
}

func (d Deps) collection(name string) string {
	return storage.UserCollection(d.UserID, name)
}

func (d Deps) fail(op string, err error) {
	logger.Error("Write failed", "op", op, "user", d.UserID, "error", err)
	if d.OnError != nil {
		d.OnError(op, err)
	}
}

// write and the helpers below swallow errors after reporting them
func (d Deps) write(op, path string, fields storage.Fields, merge bool) {
	if err := d.Store.Write(context.Background(), path, fields, storage.WriteOptions{Merge: merge}); err != nil {
		d.fail(op, err)
	}
}

// update patches an existing document; a missing one is reported, not created
func (d Deps) update(op, path string, fields storage.Fields) {
	if err := d.Store.Update(context.Background(), path, fields); err != nil {
		d.fail(op, err)
	}
}

func (d Deps) add(op, collection string, fields storage.Fields) {
	if _, err := d.Store.Add(context.Background(), collection, fields); err != nil {
		d.fail(op, err)
	}
}

func (d Deps) delete(op, path string) {
	if err := d.Store.Delete(context.Background(), path); err != nil {
		d.fail(op, err)
	}
}

func (d Deps) batch(op string, mutations []storage.Mutation) {
	if err := d.Store.Batch(context.Background(), mutations); err != nil {
		d.fail(op, err)
	}
}

// notifier fans a change signal out to a single registered callback
type notifier struct {
	fn func()
}

func (n *notifier) notify() {
	if n.fn != nil {
		n.fn()
	}
}
