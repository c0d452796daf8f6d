package valuemap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/henderiw/intervalcollection/pkg/store"
	"github.com/henderiw/intervalcollection/pkg/valuetype"
	"k8s.io/apimachinery/pkg/labels"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyExists   = errors.New("key already exists")
)

// Map is the host of replicated values: each key holds one value of a
// registered value type. It routes sequenced ops to the value they target
// and persists snapshots of all values.
type Map interface {
	// Set creates an empty value of valueType at key.
	Set(key, valueType string) (any, error)
	Get(key string) (any, error)
	Delete(key string) error
	Has(key string) bool
	Count() int
	Iterate() *Iterator
	GetAll() map[string]any
	GetByLabel(selector labels.Selector) []Entry

	// Prepare and Process make a Map a valuetype.Target
	Prepare(ctx context.Context, msg *valuetype.SequencedMessage) (any, error)
	Process(msg *valuetype.SequencedMessage, opCtx any) error

	// Snapshot writes every value to the store and returns the snapshot id.
	Snapshot(ctx context.Context, st store.Store) (string, error)
	// Load replaces the content of the map with the latest snapshot in the store.
	Load(ctx context.Context, st store.Store) error
}

// ValidationFn validates a key before a value is created at it.
type ValidationFn func(key string) error

// Submitter receives the ops the values author locally, to be sent to the
// sequencer.
type Submitter func(key string, op valuetype.Op)

type Option func(*valueMap)

func WithLogger(l logr.Logger) Option {
	return func(r *valueMap) {
		r.l = l
	}
}

// WithCodec sets the codec of op values and snapshots; JSON by default.
func WithCodec(codec valuetype.Codec) Option {
	return func(r *valueMap) {
		r.codec = codec
	}
}

func WithSubmitter(s Submitter) Option {
	return func(r *valueMap) {
		r.submitter = s
	}
}

func WithValidationFn(v ValidationFn) Option {
	return func(r *valueMap) {
		r.validateFn = v
	}
}

// New returns a Map owned by clientID. Ops sequenced with the same client
// id are treated as local echoes.
func New(clientID int, registry valuetype.Registry, opts ...Option) Map {
	r := &valueMap{
		m:        new(sync.RWMutex),
		table:    map[string]*entry{},
		clientID: clientID,
		registry: registry,
		codec:    valuetype.JSON,
		l:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type valueMap struct {
	m          *sync.RWMutex
	table      map[string]*entry
	clientID   int
	registry   valuetype.Registry
	codec      valuetype.Codec
	submitter  Submitter
	validateFn ValidationFn
	l          logr.Logger
}

// GetAs returns the value at key as a V.
func GetAs[V any](m Map, key string) (V, error) {
	var v V
	value, err := m.Get(key)
	if err != nil {
		return v, err
	}
	v, ok := value.(V)
	if !ok {
		return v, fmt.Errorf("%w: key %s holds %T", valuetype.ErrValueTypeMismatched, key, value)
	}
	return v, nil
}

func (r *valueMap) validate(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if r.validateFn != nil {
		if err := r.validateFn(key); err != nil {
			return err
		}
	}
	return nil
}

func (r *valueMap) Set(key, valueType string) (any, error) {
	r.m.Lock()
	defer r.m.Unlock()

	if err := r.validate(key); err != nil {
		return nil, err
	}
	if _, ok := r.table[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	e, err := r.load(key, valueType, valuetype.Params{})
	if err != nil {
		return nil, err
	}
	r.table[key] = e
	r.l.V(1).Info("set", "key", key, "valueType", valueType)
	return e.value, nil
}

// load builds the entry of key from its raw persisted form.
func (r *valueMap) load(key, valueType string, raw valuetype.Params) (*entry, error) {
	h, err := r.registry.Get(valueType)
	if err != nil {
		return nil, err
	}
	value, err := h.Load(&keyEmitter{key: key, m: r}, raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return &entry{key: key, handler: h, value: value}, nil
}

func (r *valueMap) Get(key string) (any, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.table[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return e.value, nil
}

func (r *valueMap) Delete(key string) error {
	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.table[key]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	delete(r.table, key)
	return nil
}

func (r *valueMap) Has(key string) bool {
	r.m.RLock()
	defer r.m.RUnlock()

	_, ok := r.table[key]
	return ok
}

func (r *valueMap) Count() int {
	r.m.RLock()
	defer r.m.RUnlock()

	return len(r.table)
}

func (r *valueMap) Iterate() *Iterator {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.iterate()
}

func (r *valueMap) iterate() *Iterator {
	keys := make([]string, 0, len(r.table))
	table := make(map[string]*entry, len(r.table))
	for key, e := range r.table {
		keys = append(keys, key)
		table[key] = e
	}
	sort.Strings(keys)

	return &Iterator{current: -1, keys: keys, table: table}
}

func (r *valueMap) GetAll() map[string]any {
	r.m.RLock()
	defer r.m.RUnlock()

	entries := make(map[string]any, len(r.table))
	for key, e := range r.table {
		entries[key] = e.value
	}
	return entries
}

func (r *valueMap) GetByLabel(selector labels.Selector) []Entry {
	r.m.RLock()
	defer r.m.RUnlock()

	entries := []Entry{}
	iter := r.iterate()
	for iter.Next() {
		if selector.Matches(iter.Entry().Labels()) {
			entries = append(entries, iter.Entry())
		}
	}
	return entries
}

func (r *valueMap) entry(key string) (*entry, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.table[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return e, nil
}

func (r *valueMap) isLocal(msg *valuetype.SequencedMessage) bool {
	return msg.ClientID == r.clientID
}

func (r *valueMap) Prepare(ctx context.Context, msg *valuetype.SequencedMessage) (any, error) {
	e, err := r.entry(msg.Key)
	if err != nil {
		return nil, err
	}
	return e.handler.Prepare(ctx, e.value, msg.Op, r.codec, r.isLocal(msg), msg)
}

func (r *valueMap) Process(msg *valuetype.SequencedMessage, opCtx any) error {
	e, err := r.entry(msg.Key)
	if err != nil {
		return err
	}
	local := r.isLocal(msg)
	if local {
		r.l.V(1).Info("local echo", "key", msg.Key, "op", msg.Op.Type, "seq", msg.SequenceNumber)
	}
	return e.handler.Process(e.value, msg.Op, r.codec, opCtx, local, msg)
}

// keyEmitter is the OpEmitter handed to the value stored at key.
type keyEmitter struct {
	key string
	m   *valueMap
}

func (r *keyEmitter) Emit(opName string, value any) {
	if r.m.submitter == nil {
		r.m.l.V(1).Info("no submitter, dropping op", "key", r.key, "op", opName)
		return
	}
	op, err := valuetype.NewOp(r.m.codec, opName, value)
	if err != nil {
		r.m.l.Error(err, "cannot encode op", "key", r.key, "op", opName)
		return
	}
	r.m.submitter(r.key, op)
}
