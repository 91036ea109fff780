package tiger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
)

// Download fetches the place archive from url to zipPath unless a non-empty
// file already exists there. The body is written to a temporary file and
// renamed so an interrupted transfer never leaves a truncated archive behind.
func Download(ctx context.Context, f fetcher.Fetcher, url, zipPath string) error {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("zip already exists, skipping download", zap.String("path", zipPath))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return eris.Wrap(err, "tiger: create dest dir")
	}

	log.Info("downloading TIGER place archive")
	tmp := zipPath + ".part"
	n, err := f.DownloadToFile(ctx, url, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "tiger: download place archive")
	}
	if err := os.Rename(tmp, zipPath); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "tiger: finalize place archive")
	}

	log.Info("downloaded TIGER place archive", zap.Int64("bytes", n))
	return nil
}
