package valuetype

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler is a ValueType with its value type erased, so values of different
// types can be routed through one registry.
type Handler interface {
	Name() string
	Load(emitter OpEmitter, raw Params) (any, error)
	Store(value any) (any, error)
	Prepare(ctx context.Context, value any, op Op, codec Codec, local bool, msg *SequencedMessage) (any, error)
	Process(value any, op Op, codec Codec, opCtx any, local bool, msg *SequencedMessage) error
}

// NewHandler erases the value type of vt.
func NewHandler[V any](vt ValueType[V]) Handler {
	return &handler[V]{vt: vt}
}

type handler[V any] struct {
	vt ValueType[V]
}

func (r *handler[V]) Name() string { return r.vt.Name() }

func (r *handler[V]) Load(emitter OpEmitter, raw Params) (any, error) {
	return r.vt.Factory().Load(emitter, raw)
}

func (r *handler[V]) Store(value any) (any, error) {
	v, err := r.value(value)
	if err != nil {
		return nil, err
	}
	return r.vt.Factory().Store(v)
}

func (r *handler[V]) Prepare(ctx context.Context, value any, op Op, codec Codec, local bool, msg *SequencedMessage) (any, error) {
	v, err := r.value(value)
	if err != nil {
		return nil, err
	}
	operation, err := r.operation(op.Type)
	if err != nil {
		return nil, err
	}
	return operation.Prepare(ctx, v, NewParams(codec, op.Value), local, msg)
}

func (r *handler[V]) Process(value any, op Op, codec Codec, opCtx any, local bool, msg *SequencedMessage) error {
	v, err := r.value(value)
	if err != nil {
		return err
	}
	operation, err := r.operation(op.Type)
	if err != nil {
		return err
	}
	return operation.Process(v, NewParams(codec, op.Value), opCtx, local, msg)
}

func (r *handler[V]) value(value any) (V, error) {
	v, ok := value.(V)
	if !ok {
		return v, fmt.Errorf("%w: %s got %T", ErrValueTypeMismatched, r.vt.Name(), value)
	}
	return v, nil
}

func (r *handler[V]) operation(opType string) (Operation[V], error) {
	operation, ok := r.vt.Ops()[opType]
	if !ok {
		return nil, fmt.Errorf("%w: %s for value type %s", ErrUnknownOp, opType, r.vt.Name())
	}
	return operation, nil
}

// Registry maps value type names to their handlers.
type Registry interface {
	Register(h Handler) error
	Get(name string) (Handler, error)
	Names() []string
}

func NewRegistry(handlers ...Handler) (Registry, error) {
	r := &registry{
		m:        new(sync.RWMutex),
		handlers: map[string]Handler{},
	}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type registry struct {
	m        *sync.RWMutex
	handlers map[string]Handler
}

func (r *registry) Register(h Handler) error {
	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.handlers[h.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateValueType, h.Name())
	}
	r.handlers[h.Name()] = h
	return nil
}

func (r *registry) Get(name string) (Handler, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownValueType, name)
	}
	return h, nil
}

func (r *registry) Names() []string {
	r.m.RLock()
	defer r.m.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
