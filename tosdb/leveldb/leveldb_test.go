package leveldb

import (
	"testing"

	"github.com/tos-network/ctoken/tosdb"
	"github.com/tos-network/ctoken/tosdb/dbtest"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			db, err := NewMemory()
			if err != nil {
				t.Fatal(err)
			}
			return db
		})
	})
}

func TestLevelDBOnDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	db, err = New(dir, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	got, err := db.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("reopened Get = %q, %v", got, err)
	}
	if db.Path() != dir {
		t.Fatalf("Path() = %q", db.Path())
	}
}
