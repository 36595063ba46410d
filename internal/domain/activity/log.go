// Package activity keeps the flat append-only activity log of settlement documents.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/core/docstore"
)

// Collection holds the log entries.
const Collection = "activity_log"

// Action represents the type of logged operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionVoid   Action = "void"
	ActionDelete Action = "delete"
)

// CompressionAlgo specifies the compression applied to Changes.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are compressed.
const DefaultCompressThreshold = 4 * 1024

// Entry represents a single activity log entry.
type Entry struct {
	ID                string          `json:"id,omitempty"`
	EntityType        string          `json:"entityType"`
	EntityID          string          `json:"entityId"`
	Action            Action          `json:"action"`
	UserID            string          `json:"userId,omitempty"`
	Changes           json.RawMessage `json:"changes,omitempty"`
	ChangesCompressed []byte          `json:"changesCompressed,omitempty"`
	CompressionAlgo   CompressionAlgo `json:"compressionAlgo"`
	At                time.Time       `json:"at"`
}

// Log appends entries to the store.
type Log struct {
	entries           *docstore.Collection[Entry]
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewLog creates an activity log over store.
func NewLog(store docstore.Store) (*Log, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Log{
		entries:           docstore.NewCollection[Entry](store, Collection),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record appends an entry. changes is any JSON-encodable value.
func (l *Log) Record(ctx context.Context, entityType, entityID string, action Action, changes any) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	entry := Entry{
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		UserID:          appctx.GetUserID(ctx),
		Changes:         raw,
		CompressionAlgo: CompressionNone,
		At:              time.Now().UTC(),
	}

	// Compress large changes
	if len(raw) > l.compressThreshold {
		entry.ChangesCompressed = l.encoder.EncodeAll(raw, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}

	if err := l.entries.Insert(ctx, &entry); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// History returns the entries of one entity, newest first, with changes decompressed.
func (l *Log) History(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	found, err := l.entries.List(ctx, docstore.Where("entityType", entityType).And("entityId", entityID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].At.After(found[j].At) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	out := make([]Entry, 0, len(found))
	for _, e := range found {
		if e.CompressionAlgo == CompressionZstd && len(e.ChangesCompressed) > 0 {
			decompressed, err := l.decoder.DecodeAll(e.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			e.Changes = decompressed
			e.ChangesCompressed = nil
		}
		out = append(out, *e)
	}
	return out, nil
}

// Diff calculates the difference between old and new entity states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}

// DiffDocuments normalizes old and updated through JSON and diffs them.
func DiffDocuments(old, updated any) (map[string]any, error) {
	a, err := docstore.Normalize(old)
	if err != nil {
		return nil, err
	}
	b, err := docstore.Normalize(updated)
	if err != nil {
		return nil, err
	}
	return Diff(a, b), nil
}
