package interval

import (
	"context"
	"fmt"

	"github.com/henderiw/intervalcollection/pkg/valuetype"
)

// ValueTypeName identifies the shared interval collection in a host's
// value type registry.
const ValueTypeName = "sharedIntervalCollection"

type valueType struct {
	factory *factory
	ops     map[string]valuetype.Operation[*SharedCollection]
}

// NewValueType returns the value type of SharedCollection. opts are applied
// to every collection its factory loads.
func NewValueType(opts ...Option) valuetype.ValueType[*SharedCollection] {
	return &valueType{
		factory: &factory{opts: opts},
		ops: map[string]valuetype.Operation[*SharedCollection]{
			OpAdd: valuetype.OperationFuncs[*SharedCollection]{
				PrepareFunc: prepareAdd,
				ProcessFunc: processAdd,
			},
			OpRemove: valuetype.OperationFuncs[*SharedCollection]{
				ProcessFunc: processRemove,
			},
		},
	}
}

// NewHandler returns the type erased value type, ready for a registry.
func NewHandler(opts ...Option) valuetype.Handler {
	return valuetype.NewHandler(NewValueType(opts...))
}

func (r *valueType) Name() string { return ValueTypeName }

func (r *valueType) Factory() valuetype.Factory[*SharedCollection] { return r.factory }

func (r *valueType) Ops() map[string]valuetype.Operation[*SharedCollection] { return r.ops }

type factory struct {
	opts []Option
}

// Load decodes a persisted list of serialized intervals; an empty raw value
// loads an empty collection.
func (r *factory) Load(emitter valuetype.OpEmitter, raw valuetype.Params) (*SharedCollection, error) {
	var serialized []SerializedInterval
	if !raw.IsZero() {
		if err := raw.Decode(&serialized); err != nil {
			return nil, fmt.Errorf("load %s: %w", ValueTypeName, err)
		}
	}
	return NewSharedCollection(emitter, serialized, r.opts...), nil
}

func (r *factory) Store(value *SharedCollection) (any, error) {
	return value.Serialize(), nil
}

func decodeSerializedInterval(params valuetype.Params) (SerializedInterval, error) {
	var si SerializedInterval
	if err := params.Decode(&si); err != nil {
		return si, fmt.Errorf("decode serialized interval: %w", err)
	}
	return si, nil
}

// Local ops were already applied when they were authored.
func prepareAdd(ctx context.Context, value *SharedCollection, params valuetype.Params, local bool, msg *valuetype.SequencedMessage) (any, error) {
	if local {
		return nil, nil
	}
	si, err := decodeSerializedInterval(params)
	if err != nil {
		return nil, err
	}
	return value.PrepareAdd(ctx, si, local, msg)
}

func processAdd(value *SharedCollection, params valuetype.Params, opCtx any, local bool, msg *valuetype.SequencedMessage) error {
	if local {
		return nil
	}
	si, err := decodeSerializedInterval(params)
	if err != nil {
		return err
	}
	value.AddSerialized(si, opCtx, local, msg)
	return nil
}

func processRemove(value *SharedCollection, params valuetype.Params, opCtx any, local bool, msg *valuetype.SequencedMessage) error {
	if local {
		return nil
	}
	si, err := decodeSerializedInterval(params)
	if err != nil {
		return err
	}
	value.Remove(si, false)
	return nil
}
