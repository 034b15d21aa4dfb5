package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/config"
	"github.com/andresuchdata/oilhub/backend-go/internal/ledgerio"
	"github.com/andresuchdata/oilhub/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

func remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "remote", Usage: "Read ledgers from S3-compatible storage instead of the local disk"},
		&cli.StringFlag{Name: "storage-endpoint", EnvVars: []string{"STORAGE_ENDPOINT"}},
		&cli.StringFlag{Name: "storage-access-key", EnvVars: []string{"STORAGE_ACCESS_KEY"}},
		&cli.StringFlag{Name: "storage-secret-key", EnvVars: []string{"STORAGE_SECRET_KEY"}},
		&cli.StringFlag{Name: "storage-bucket", EnvVars: []string{"STORAGE_BUCKET"}},
		&cli.StringFlag{Name: "storage-region", Value: "us-east-1", EnvVars: []string{"STORAGE_REGION"}},
		&cli.BoolFlag{Name: "storage-use-ssl", Value: true, EnvVars: []string{"STORAGE_USE_SSL"}},
		&cli.StringFlag{Name: "download-dir", Value: "./data/tmp/ledgers", Usage: "Where remote ledgers are downloaded"},
	}
}

type remoteLedgers struct {
	client  storage.ObjectStorage
	baseDir string
}

// newRemoteLedgers returns nil when --remote is not set.
func newRemoteLedgers(c *cli.Context) (*remoteLedgers, error) {
	if !c.Bool("remote") {
		return nil, nil
	}

	client, err := storage.NewMinioClient(config.StorageConfig{
		Endpoint:  c.String("storage-endpoint"),
		AccessKey: c.String("storage-access-key"),
		SecretKey: c.String("storage-secret-key"),
		Bucket:    c.String("storage-bucket"),
		Region:    c.String("storage-region"),
		UseSSL:    c.Bool("storage-use-ssl"),
	})
	if err != nil {
		return nil, err
	}

	baseDir := c.String("download-dir")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", baseDir, err)
	}
	return &remoteLedgers{client: client, baseDir: baseDir}, nil
}

func (r *remoteLedgers) fetch(ctx context.Context, key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	localPath := filepath.Join(r.baseDir, filepath.FromSlash(key))
	if err := r.client.DownloadObject(ctx, key, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}

// archiveRejected uploads the rejected rows next to the source object for later correction.
func (r *remoteLedgers) archiveRejected(ctx context.Context, kind ledgerKind, key string, rejected []ledgerio.RowError) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"row", "error"}); err != nil {
		return err
	}
	for _, re := range rejected {
		if err := w.Write([]string{strconv.Itoa(re.Row), re.Err.Error()}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	dir := filepath.ToSlash(filepath.Dir(strings.TrimPrefix(key, "/")))
	name := fmt.Sprintf("%s_rejected_%s.csv", kind, time.Now().UTC().Format("20060102T150405"))
	return r.client.UploadObject(ctx, resolveObjectKey(dir, name), buf.Bytes())
}

func resolveObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if prefix == "" || prefix == "." {
		return name
	}
	if strings.HasPrefix(name, prefix+"/") {
		return name
	}
	return prefix + "/" + name
}
