package file_test

import (
	"testing"

	"github.com/aretw0/guardian/internal/adapters/file"
	"github.com/aretw0/guardian/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSessionStoreContract(t, store)
}

func TestFileStore_DefaultPath(t *testing.T) {
	store := file.New("")
	if store.BasePath == "" {
		t.Fatal("expected a default base path")
	}
}
