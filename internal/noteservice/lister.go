package noteservice

import (
	"context"

	"github.com/starford/luhmann/internal/storage"
)

// vaultLister answers navigator queries by scanning the vault, so every
// step sees the files as they are on disk right now.
type vaultLister struct {
	store storage.Provider
}

func (l vaultLister) ListFiles(ctx context.Context, recursive bool, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Find("", recursive, pattern)
}
