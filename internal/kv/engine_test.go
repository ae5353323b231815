// file: internal/kv/engine_test.go
// version: 1.0.0
// guid: b51440d8-bb3b-4749-985e-6f4b76fe55b0

package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEngines(t *testing.T) map[string]Engine {
	t.Helper()
	engines := map[string]Engine{}

	p, err := Open(EnginePebble, t.TempDir(), false)
	require.NoError(t, err)
	engines[EnginePebble] = p

	s, err := Open(EngineSQLite, t.TempDir(), true)
	require.NoError(t, err)
	engines[EngineSQLite] = s

	t.Cleanup(func() {
		for _, e := range engines {
			_ = e.Close()
		}
	})
	return engines
}

func TestEngines(t *testing.T) {
	for name, e := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, e.Name())

			_, err := e.Get("missing")
			assert.True(t, errors.Is(err, ErrKeyNotFound))

			require.NoError(t, e.Set("library_info:a", []byte(`{"name":"a"}`)))
			require.NoError(t, e.Set("library_info:a", []byte(`{"name":"b"}`)))
			got, err := e.Get("library_info:a")
			require.NoError(t, err)
			assert.Equal(t, `{"name":"b"}`, string(got))

			require.NoError(t, e.Delete("library_info:a"))
			require.NoError(t, e.Delete("library_info:a"), "delete is idempotent")
			_, err = e.Get("library_info:a")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestScanPrefix(t *testing.T) {
	for name, e := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, e.Apply([]Op{
				{Key: "shared_library_b", Value: []byte("2")},
				{Key: "shared_library_a", Value: []byte("1")},
				{Key: "shared_librarz", Value: []byte("x")},
				{Key: "library_id", Value: []byte("y")},
			}))

			var keys []string
			err := e.Scan("shared_library_", func(key string, value []byte) error {
				keys = append(keys, key)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"shared_library_a", "shared_library_b"}, keys)

			stop := errors.New("stop")
			err = e.Scan("shared_library_", func(string, []byte) error { return stop })
			assert.ErrorIs(t, err, stop)
		})
	}
}

func TestApplyDeletes(t *testing.T) {
	for name, e := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, e.Set("a", []byte("1")))
			require.NoError(t, e.Apply([]Op{{Key: "a", Delete: true}, {Key: "b", Value: []byte("2")}}))

			_, err := e.Get("a")
			assert.ErrorIs(t, err, ErrKeyNotFound)
			got, err := e.Get("b")
			require.NoError(t, err)
			assert.Equal(t, "2", string(got))
		})
	}
}

func TestOpenRejectsSQLiteWithoutFlag(t *testing.T) {
	_, err := Open(EngineSQLite, t.TempDir(), false)
	assert.Error(t, err)

	_, err = Open("bolt", t.TempDir(), true)
	assert.Error(t, err)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("ab"), prefixUpperBound([]byte("aa")))
	assert.Equal(t, []byte("b"), prefixUpperBound([]byte{'a', 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}
