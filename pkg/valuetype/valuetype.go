package valuetype

import (
	"context"
	"errors"
)

var (
	ErrUnknownOp           = errors.New("unknown op")
	ErrUnknownValueType    = errors.New("unknown value type")
	ErrDuplicateValueType  = errors.New("value type already registered")
	ErrValueTypeMismatched = errors.New("value does not belong to value type")
)

// OpEmitter sends a locally authored op toward the sequencer.
type OpEmitter interface {
	Emit(opName string, value any)
}

// SequencedMessage is the envelope of an op once the sequencer has ordered it.
type SequencedMessage struct {
	SequenceNumber          int
	ReferenceSequenceNumber int
	ClientID                int
	// Key names the value the op targets in its host
	Key string
	Op  Op
}

// Operation is one entry of a value type's op table.
//
// Prepare may suspend (e.g. wait for external state) and runs before
// Process. Its result is handed to Process as opCtx. Process is synchronous
// and the host calls it in sequence number order. msg is nil for an op that
// is being authored locally.
type Operation[V any] interface {
	Prepare(ctx context.Context, value V, params Params, local bool, msg *SequencedMessage) (any, error)
	Process(value V, params Params, opCtx any, local bool, msg *SequencedMessage) error
}

// OperationFuncs adapts two funcs to an Operation.
type OperationFuncs[V any] struct {
	PrepareFunc func(ctx context.Context, value V, params Params, local bool, msg *SequencedMessage) (any, error)
	ProcessFunc func(value V, params Params, opCtx any, local bool, msg *SequencedMessage) error
}

func (r OperationFuncs[V]) Prepare(ctx context.Context, value V, params Params, local bool, msg *SequencedMessage) (any, error) {
	if r.PrepareFunc == nil {
		return nil, nil
	}
	return r.PrepareFunc(ctx, value, params, local, msg)
}

func (r OperationFuncs[V]) Process(value V, params Params, opCtx any, local bool, msg *SequencedMessage) error {
	if r.ProcessFunc == nil {
		return nil
	}
	return r.ProcessFunc(value, params, opCtx, local, msg)
}

// Factory loads a value from its persisted form and stores it back.
type Factory[V any] interface {
	Load(emitter OpEmitter, raw Params) (V, error)
	Store(value V) (any, error)
}

// ValueType describes how a replicated value is loaded, stored and how its
// ops are applied.
type ValueType[V any] interface {
	Name() string
	Factory() Factory[V]
	Ops() map[string]Operation[V]
}
