package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
)

// AccountsFileName is the default name of the accounts file
func AccountsFileName(network string, latestBlock uint64) string {
	return fmt.Sprintf("gmx_accounts_%s_%d.csv", network, latestBlock)
}

// AccountsWindowFileName names the accounts file of the list window [start, end)
func AccountsWindowFileName(network string, latestBlock uint64, start, end int) string {
	return fmt.Sprintf("gmx_accounts_%s_%d_%d_%d.csv", network, latestBlock, start, end)
}

// HoldersFileName is the default name of the address list file
func HoldersFileName(network string, latestBlock uint64) string {
	return fmt.Sprintf("gmx_holders_%s_%d.csv", network, latestBlock)
}

// Exporter writes result files into a directory
type Exporter struct {
	fs  adapter.FileSystem
	dir string
}

// NewExporter creates an exporter writing into dir
func NewExporter(fs adapter.FileSystem, dir string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{fs: fs, dir: dir}
}

// ExportAccounts writes the accounts file and returns its path
func (e *Exporter) ExportAccounts(ctx context.Context, name string, records []*domain.AccountRecord) (string, error) {
	path, err := e.write(name, func(w io.Writer) error {
		return WriteAccounts(w, records)
	})
	if err != nil {
		return "", fmt.Errorf("failed to export accounts: %w", err)
	}

	logger.InfoCtx(ctx, "Accounts exported", zap.String("path", path), zap.Int("rows", len(records)))
	return path, nil
}

// ExportAddresses writes the address list file and returns its path
func (e *Exporter) ExportAddresses(ctx context.Context, name string, addresses []common.Address) (string, error) {
	path, err := e.write(name, func(w io.Writer) error {
		return WriteAddresses(w, addresses)
	})
	if err != nil {
		return "", fmt.Errorf("failed to export addresses: %w", err)
	}

	logger.InfoCtx(ctx, "Addresses exported", zap.String("path", path), zap.Int("rows", len(addresses)))
	return path, nil
}

// ImportAddresses reads an address list from path
func (e *Exporter) ImportAddresses(path string) ([]common.Address, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	addresses, err := ReadAddresses(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return addresses, nil
}

// write creates name inside the output directory and fills it with fn
func (e *Exporter) write(name string, fn func(w io.Writer) error) (string, error) {
	if err := e.fs.MkdirAll(e.dir); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", e.dir, err)
	}

	path := filepath.Join(e.dir, name)
	f, err := e.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	return path, nil
}
