// Package wallet answers whether an identity has been provisioned. Enrolment
// and secret storage live outside the gateway.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store reports whether an identity exists.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// FileStore keeps one <id>.id file per identity under Dir.
type FileStore struct {
	Dir string
}

func (s FileStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return false, fmt.Errorf("wallet: invalid identity %q", id)
	}
	fi, err := os.Stat(filepath.Join(s.Dir, id+".id"))
	switch {
	case err == nil:
		return fi.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("wallet: stat %s: %w", id, err)
	}
}

// Check verifies that the registrar and every system user are provisioned.
// Missing identities are logged; with require set they are also returned as
// an error so startup can abort.
func Check(ctx context.Context, s Store, registrar string, systemUsers []string, require bool, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	ids := make([]string, 0, len(systemUsers)+1)
	if registrar != "" {
		ids = append(ids, registrar)
	}
	ids = append(ids, systemUsers...)

	var missing []string
	for _, id := range ids {
		ok, err := s.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, id)
			log.Warn("wallet identity missing", zap.String("identity", id))
		}
	}
	if len(missing) == 0 {
		log.Info("wallet identities present", zap.Strings("identities", ids))
		return nil
	}
	if require {
		return fmt.Errorf("wallet: missing identities %s", strings.Join(missing, ", "))
	}
	return nil
}
