package localstore

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Keys under which the identity and liked set are stored.
const (
	VisitorKey = "nekozukan_visitor_id"
	LikedKey   = "nekozukan_liked"
)

// Identity owns the visitor id and the liked set. Storage failures never
// surface: the id falls back to a per-process value and reads of a broken
// liked set see it as empty.
type Identity struct {
	kv     KV
	log    *slog.Logger
	mu     sync.Mutex
	backup string
}

// NewIdentity wraps kv. A nil logger discards warnings.
func NewIdentity(kv KV, log *slog.Logger) *Identity {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Identity{kv: kv, log: log}
}

// VisitorID returns the persisted visitor id, creating it on first use.
// Only the first call for a given store writes to it.
func (i *Identity) VisitorID() string {
	if old, ok, err := i.kv.Get(VisitorKey); err == nil && ok && old != "" {
		return old
	}

	var id string
	err := i.kv.Update(VisitorKey, func(old string, ok bool) (string, error) {
		if ok && old != "" {
			id = old
			return old, nil
		}
		id = uuid.NewString()
		return id, nil
	})
	if err == nil {
		return id
	}

	i.log.Warn("visitor id storage unavailable, using session id", "error", err)
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.backup == "" {
		i.backup = uuid.NewString()
	}
	return i.backup
}

// IsLiked reports whether postID is in the liked set.
func (i *Identity) IsLiked(postID uint) bool {
	raw, ok, err := i.kv.Get(LikedKey)
	if err != nil {
		i.log.Warn("liked set unreadable", "error", err)
		return false
	}
	if !ok {
		return false
	}
	_, found := decodeSet(raw)[postID]
	return found
}

// MarkLiked adds postID to the liked set.
func (i *Identity) MarkLiked(postID uint) error {
	return i.mutate(func(set map[uint]struct{}) { set[postID] = struct{}{} })
}

// MarkUnliked removes postID from the liked set.
func (i *Identity) MarkUnliked(postID uint) error {
	return i.mutate(func(set map[uint]struct{}) { delete(set, postID) })
}

// LikedIDs returns the liked set in ascending order.
func (i *Identity) LikedIDs() []uint {
	raw, ok, err := i.kv.Get(LikedKey)
	if err != nil || !ok {
		return []uint{}
	}
	return sortedIDs(decodeSet(raw))
}

func (i *Identity) mutate(fn func(map[uint]struct{})) error {
	err := i.kv.Update(LikedKey, func(old string, _ bool) (string, error) {
		set := decodeSet(old)
		fn(set)
		b, err := json.Marshal(sortedIDs(set))
		return string(b), err
	})
	if err != nil {
		i.log.Warn("liked set not persisted", "error", err)
	}
	return err
}

func decodeSet(raw string) map[uint]struct{} {
	set := make(map[uint]struct{})
	if raw == "" {
		return set
	}
	var ids []uint
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
