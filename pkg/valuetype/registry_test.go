package valuetype

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// counter is a minimal value type used to exercise the registry.
type counter struct {
	value int
}

type counterType struct{}

func (counterType) Name() string { return "counter" }

func (counterType) Factory() Factory[*counter] { return counterFactory{} }

func (counterType) Ops() map[string]Operation[*counter] {
	return map[string]Operation[*counter]{
		"increment": OperationFuncs[*counter]{
			PrepareFunc: func(ctx context.Context, value *counter, params Params, local bool, msg *SequencedMessage) (any, error) {
				var delta int
				if err := params.Decode(&delta); err != nil {
					return nil, err
				}
				return delta, nil
			},
			ProcessFunc: func(value *counter, params Params, opCtx any, local bool, msg *SequencedMessage) error {
				value.value += opCtx.(int)
				return nil
			},
		},
		"noop": OperationFuncs[*counter]{},
	}
}

type counterFactory struct{}

func (counterFactory) Load(emitter OpEmitter, raw Params) (*counter, error) {
	c := &counter{}
	if raw.IsZero() {
		return c, nil
	}
	if err := raw.Decode(&c.value); err != nil {
		return nil, err
	}
	return c, nil
}

func (counterFactory) Store(value *counter) (any, error) { return value.value, nil }

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(NewHandler[*counter](counterType{}))
	assert.NoError(t, err)
	assert.Equal(t, []string{"counter"}, r.Names())

	err = r.Register(NewHandler[*counter](counterType{}))
	assert.True(t, errors.Is(err, ErrDuplicateValueType))

	_, err = r.Get("map")
	assert.True(t, errors.Is(err, ErrUnknownValueType))

	_, err = NewRegistry(NewHandler[*counter](counterType{}), NewHandler[*counter](counterType{}))
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	h := NewHandler[*counter](counterType{})

	cases := map[string]struct {
		value       any
		opType      string
		delta       int
		expected    int
		expectedErr error
	}{
		"Increment": {
			value:    &counter{value: 1},
			opType:   "increment",
			delta:    2,
			expected: 3,
		},
		"Noop": {
			value:    &counter{value: 1},
			opType:   "noop",
			expected: 1,
		},
		"UnknownOp": {
			value:       &counter{},
			opType:      "decrement",
			expectedErr: ErrUnknownOp,
		},
		"WrongValue": {
			value:       "counter",
			opType:      "increment",
			expectedErr: ErrValueTypeMismatched,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			op, err := NewOp(JSON, tc.opType, tc.delta)
			assert.NoError(t, err)

			opCtx, err := h.Prepare(context.Background(), tc.value, op, JSON, false, nil)
			if tc.expectedErr != nil {
				assert.True(t, errors.Is(err, tc.expectedErr))
				return
			}
			assert.NoError(t, err)
			assert.NoError(t, h.Process(tc.value, op, JSON, opCtx, false, nil))

			stored, err := h.Store(tc.value)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, stored)
		})
	}
}

func TestHandlerLoad(t *testing.T) {
	h := NewHandler[*counter](counterType{})

	v, err := h.Load(nil, NewParams(MsgPack, mustMarshal(t, MsgPack, 7)))
	assert.NoError(t, err)
	assert.Equal(t, &counter{value: 7}, v)

	_, err = h.Store(42)
	assert.True(t, errors.Is(err, ErrValueTypeMismatched))
}

func mustMarshal(t *testing.T, codec Codec, v any) []byte {
	t.Helper()
	b, err := codec.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
