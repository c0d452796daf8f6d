package store

import (
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadgerStore("", WithInMemory(), WithLogger(testr.New(t)))
	if err != nil {
		t.Fatalf("cannot open badger store: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("close badger store: %v", err)
		}
	})
	return map[string]Store{
		"Badger": b,
		"Memory": NewMemoryStore(),
	}
}

func TestGetPutDelete(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get([]byte("a"))
			assert.True(t, errors.Is(err, ErrKeyNotFound))

			assert.NoError(t, s.Put([]byte("a"), []byte("1")))
			v, err := s.Get([]byte("a"))
			assert.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			assert.NoError(t, s.Put([]byte("a"), []byte("2")))
			v, err = s.Get([]byte("a"))
			assert.NoError(t, err)
			assert.Equal(t, []byte("2"), v)

			assert.NoError(t, s.Delete([]byte("a")))
			_, err = s.Get([]byte("a"))
			assert.True(t, errors.Is(err, ErrKeyNotFound))
		})
	}
}

func TestList(t *testing.T) {
	entries := map[string][]byte{
		"snap/1/b": []byte("b"),
		"snap/1/a": []byte("a"),
		"snap/2/a": []byte("x"),
		"latest":   []byte("1"),
	}

	cases := map[string]struct {
		prefix   string
		expected []string
	}{
		"Prefix": {
			prefix:   "snap/1/",
			expected: []string{"snap/1/a", "snap/1/b"},
		},
		"All": {
			prefix:   "",
			expected: []string{"latest", "snap/1/a", "snap/1/b", "snap/2/a"},
		},
		"None": {
			prefix:   "snap/3/",
			expected: []string{},
		},
	}

	for storeName, s := range testStores(t) {
		assert.NoError(t, s.PutBatch(entries))
		for name, tc := range cases {
			t.Run(storeName+name, func(t *testing.T) {
				got := []string{}
				err := s.List([]byte(tc.prefix), func(key, value []byte) error {
					assert.Equal(t, entries[string(key)], value)
					got = append(got, string(key))
					return nil
				})
				assert.NoError(t, err)
				if diff := cmp.Diff(tc.expected, got); diff != "" {
					t.Errorf("-want, +got:\n%s", diff)
				}
			})
		}
	}
}

func TestListStops(t *testing.T) {
	errStop := errors.New("stop")
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, s.PutBatch(map[string][]byte{"a": nil, "b": nil}))
			calls := 0
			err := s.List(nil, func(key, value []byte) error {
				calls++
				return errStop
			})
			assert.True(t, errors.Is(err, errStop))
			assert.Equal(t, 1, calls)
		})
	}
}

func TestBadgerOptions(t *testing.T) {
	_, err := NewBadgerStore("", WithInMemory(), WithValueLogFileSize(0))
	assert.Error(t, err)
}
