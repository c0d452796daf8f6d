package valuemap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/henderiw/intervalcollection/pkg/store"
	"github.com/henderiw/intervalcollection/pkg/valuetype"
)

const (
	snapshotPrefix = "snapshot/"
	latestKey      = "latest"
)

// snapshotEntry is the persisted form of one key.
type snapshotEntry struct {
	ValueType string `json:"valueType" msgpack:"valueType"`
	Codec     string `json:"codec" msgpack:"codec"`
	Value     []byte `json:"value" msgpack:"value"`
}

func snapshotKey(id, key string) []byte {
	return []byte(snapshotPrefix + id + "/" + key)
}

func (r *valueMap) Snapshot(ctx context.Context, st store.Store) (string, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	id := uuid.NewString()
	batch := make(map[string][]byte, len(r.table)+1)

	var errm error
	iter := r.iterate()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		e := iter.table[iter.Key()]
		b, err := r.storeEntry(e)
		if err != nil {
			errm = errors.Join(errm, err)
			continue
		}
		batch[string(snapshotKey(id, e.key))] = b
	}
	if errm != nil {
		return "", errm
	}
	batch[snapshotPrefix+latestKey] = []byte(id)

	if err := st.PutBatch(batch); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", id, err)
	}
	r.l.Info("snapshot", "id", id, "keys", len(batch)-1)
	return id, nil
}

func (r *valueMap) storeEntry(e *entry) ([]byte, error) {
	stored, err := e.handler.Store(e.value)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", e.key, err)
	}
	value, err := r.codec.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.key, err)
	}
	b, err := r.codec.Marshal(&snapshotEntry{ValueType: e.handler.Name(), Codec: r.codec.Name(), Value: value})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.key, err)
	}
	return b, nil
}

func (r *valueMap) Load(ctx context.Context, st store.Store) error {
	id, err := st.Get([]byte(snapshotPrefix + latestKey))
	if err != nil {
		return fmt.Errorf("latest snapshot: %w", err)
	}
	prefix := snapshotKey(string(id), "")

	table := map[string]*entry{}
	var errm error
	err = st.List(prefix, func(k, v []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := strings.TrimPrefix(string(k), string(prefix))
		var se snapshotEntry
		if err := r.codec.Unmarshal(v, &se); err != nil {
			errm = errors.Join(errm, fmt.Errorf("decode %s: %w", key, err))
			return nil
		}
		if se.Codec != r.codec.Name() {
			errm = errors.Join(errm, fmt.Errorf("decode %s: snapshot codec %s, map codec %s", key, se.Codec, r.codec.Name()))
			return nil
		}
		e, err := r.load(key, se.ValueType, valuetype.NewParams(r.codec, se.Value))
		if err != nil {
			errm = errors.Join(errm, err)
			return nil
		}
		table[key] = e
		return nil
	})
	if err != nil {
		return err
	}
	if errm != nil {
		return errm
	}

	r.m.Lock()
	defer r.m.Unlock()
	r.table = table
	r.l.Info("loaded snapshot", "id", string(id), "keys", len(table))
	return nil
}
