// Package dbtest holds a conformance suite run against every tosdb backend.
package dbtest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tos-network/ctoken/tosdb"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() tosdb.KeyValueStore) {
	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")
		if got, err := db.Has(key); err != nil || got {
			t.Fatalf("Has() = %v, %v; want false, nil", got, err)
		}
		if _, err := db.Get(key); !errors.Is(err, tosdb.ErrNotFound) {
			t.Fatalf("Get() err = %v; want ErrNotFound", err)
		}
		value := []byte("hello world")
		if err := db.Put(key, value); err != nil {
			t.Fatal(err)
		}
		if got, err := db.Has(key); err != nil || !got {
			t.Fatalf("Has() = %v, %v; want true, nil", got, err)
		}
		got, err := db.Get(key)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, value) {
			t.Fatalf("Get() = %q; want %q", got, value)
		}
		if err := db.Delete(key); err != nil {
			t.Fatal(err)
		}
		if got, err := db.Has(key); err != nil || got {
			t.Fatalf("Has() after delete = %v, %v", got, err)
		}
	})

	t.Run("BatchWrite", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.Put([]byte("3"), []byte("stale")); err != nil {
			t.Fatal(err)
		}
		b := db.NewBatch()
		for _, k := range []string{"1", "2"} {
			if err := b.Put([]byte(k), []byte("v"+k)); err != nil {
				t.Fatal(err)
			}
		}
		if err := b.Delete([]byte("3")); err != nil {
			t.Fatal(err)
		}
		if b.ValueSize() == 0 {
			t.Fatal("batch reports no queued data")
		}
		if has, _ := db.Has([]byte("1")); has {
			t.Fatal("batch leaked before Write")
		}
		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		for _, k := range []string{"1", "2"} {
			got, err := db.Get([]byte(k))
			if err != nil || string(got) != "v"+k {
				t.Fatalf("Get(%s) = %q, %v", k, got, err)
			}
		}
		if has, _ := db.Has([]byte("3")); has {
			t.Fatal("batched delete not applied")
		}
		b.Reset()
		if b.ValueSize() != 0 {
			t.Fatal("Reset kept queued data")
		}
	})
}
