package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/block"
	"github.com/feral-file/gmx-exporter/internal/config"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/export"
	"github.com/feral-file/gmx-exporter/internal/gmx"
	"github.com/feral-file/gmx-exporter/internal/holders"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/multicall"
	"github.com/feral-file/gmx-exporter/internal/providers/ethereum"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

// Summary reports the counts of one run
type Summary struct {
	Network         string
	LatestBlock     uint64
	Ranges          int
	FailedRanges    int
	Logs            int
	Candidates      int
	EOAs            int
	Contracts       int
	Unclassified    int
	Accounts        int
	Rows            int
	AccountsFailed  int
	AccountsDropped int
	Files           []string
}

// Runner wires the stages of the exporter for one network
type Runner struct {
	cfg          *config.Config
	network      *config.NetworkConfig
	client       ethereum.EthereumClient
	fetcher      *holders.Fetcher
	classifier   *holders.Classifier
	orchestrator *gmx.Orchestrator
	exporter     *export.Exporter
}

// NewRunner creates a runner; client is shared by every stage and must be safe
// for concurrent use
func NewRunner(cfg *config.Config, network *config.NetworkConfig, client ethereum.EthereumClient, fs adapter.FileSystem, clock adapter.Clock) *Runner {
	retrier := retry.New(retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		InitialWait: cfg.Retry.InitialWait,
		MaxWait:     cfg.Retry.MaxWait,
	}, clock)

	workers := holders.WorkerConfig{
		PoolSize:  cfg.Worker.WorkerPoolSize,
		QueueSize: cfg.Worker.WorkerQueueSize,
	}

	multicaller := multicall.NewMulticaller(common.HexToAddress(network.Multicall), client)
	aggregator := gmx.NewAggregator(Contracts(network), multicaller, retrier)

	return &Runner{
		cfg:        cfg,
		network:    network,
		client:     client,
		fetcher:    holders.NewFetcher(client, retrier, clock, workers),
		classifier: holders.NewClassifier(client, retrier, clock, workers),
		orchestrator: gmx.NewOrchestrator(aggregator, clock, gmx.OrchestratorConfig{
			WorkerPoolSize:  cfg.Worker.WorkerPoolSize,
			WorkerQueueSize: cfg.Worker.WorkerQueueSize,
			ProgressEvery:   cfg.ProgressEvery,
		}),
		exporter: export.NewExporter(fs, cfg.OutputDir),
	}
}

// Contracts maps a network configuration onto the queried contracts.
// The GLP balance is read from the fee+staked GLP token.
func Contracts(n *config.NetworkConfig) gmx.Contracts {
	return gmx.Contracts{
		GMX:              common.HexToAddress(n.GMX),
		EsGMX:            common.HexToAddress(n.EsGMX),
		GLP:              common.HexToAddress(n.SGLP),
		StakedGMXTracker: common.HexToAddress(n.StakedGMXTracker),
		FeeGMXTracker:    common.HexToAddress(n.FeeGMXTracker),
		BonusGMXTracker:  common.HexToAddress(n.BonusGMXTracker),
		GMXVester:        common.HexToAddress(n.GMXVester),
		GLPVester:        common.HexToAddress(n.GLPVester),
	}
}

// Run enumerates holders, aggregates their data and writes the accounts file
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary, accounts, err := r.holders(ctx)
	if err != nil {
		return summary, err
	}

	table := r.accounts(ctx, summary, accounts)

	path, err := r.exporter.ExportAccounts(ctx, export.AccountsFileName(r.network.Name, summary.LatestBlock), table.Rows())
	if err != nil {
		return summary, err
	}
	summary.Files = append(summary.Files, path)

	return summary, nil
}

// RunHolders enumerates holders and writes the address list
func (r *Runner) RunHolders(ctx context.Context) (*Summary, error) {
	summary, accounts, err := r.holders(ctx)
	if err != nil {
		return summary, err
	}

	path, err := r.exporter.ExportAddresses(ctx, export.HoldersFileName(r.network.Name, summary.LatestBlock), accounts)
	if err != nil {
		return summary, err
	}
	summary.Files = append(summary.Files, path)

	return summary, nil
}

// RunAccounts aggregates the window [start, end) of a previously written address
// list. end <= 0 selects through the end of the list.
func (r *Runner) RunAccounts(ctx context.Context, input string, start, end int) (*Summary, error) {
	summary := &Summary{Network: r.network.Name}

	all, err := r.exporter.ImportAddresses(input)
	if err != nil {
		return summary, err
	}
	accounts, err := export.Window(all, start, end)
	if err != nil {
		return summary, err
	}

	latest, err := r.client.FetchLatestBlock(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch latest block: %w", err)
	}
	summary.LatestBlock = latest

	logger.InfoCtx(ctx, "Loaded address list",
		zap.String("input", input),
		zap.Int("total", len(all)),
		zap.Int("start", start),
		zap.Int("selected", len(accounts)))

	table := r.accounts(ctx, summary, accounts)

	name := export.AccountsFileName(r.network.Name, latest)
	if start > 0 || end > 0 {
		name = export.AccountsWindowFileName(r.network.Name, latest, start, start+len(accounts))
	}
	path, err := r.exporter.ExportAccounts(ctx, name, table.Rows())
	if err != nil {
		return summary, err
	}
	summary.Files = append(summary.Files, path)

	return summary, nil
}

// holders runs partition, fetch, extraction and classification
func (r *Runner) holders(ctx context.Context) (*Summary, []common.Address, error) {
	summary := &Summary{Network: r.network.Name}

	interval, err := block.ScanInterval(ctx, r.client, r.network.DeploymentBlock)
	if err != nil {
		return summary, nil, err
	}
	summary.LatestBlock = interval.End

	ranges, err := block.Partition(interval.Start, interval.End, r.cfg.BlockRangeLimit)
	if err != nil {
		return summary, nil, err
	}
	summary.Ranges = len(ranges)

	topic := common.HexToHash(domain.TRANSFER_EVENT_SIGNATURE)
	logs, fetched := r.fetcher.FetchAll(ctx, ranges, r.network.TransferTokens(), topic)
	summary.Logs = fetched.Logs
	summary.FailedRanges = len(fetched.FailedRanges)
	if err := ctx.Err(); err != nil {
		return summary, nil, err
	}

	candidates := holders.ExtractRecipients(logs, r.cfg.RecipientTopicIndex, r.cfg.SkipZeroAddress)
	summary.Candidates = len(candidates)
	logger.InfoCtx(ctx, "Found unique addresses", zap.Int("addresses", len(candidates)))

	if !r.cfg.ClassifyEOA {
		summary.EOAs = len(candidates)
		return summary, candidates, nil
	}

	eoas, classified := r.classifier.FilterEOAs(ctx, candidates)
	summary.EOAs = classified.EOAs
	summary.Contracts = classified.Contracts
	summary.Unclassified = classified.Failed
	logger.InfoCtx(ctx, "Found unique accounts", zap.Int("eoas", len(eoas)))
	if err := ctx.Err(); err != nil {
		return summary, nil, err
	}

	return summary, eoas, nil
}

func (r *Runner) accounts(ctx context.Context, summary *Summary, accounts []common.Address) *gmx.ResultTable {
	table := r.orchestrator.BuildTable(ctx, accounts)

	summary.Accounts = len(table.Accounts())
	summary.Rows = table.Len()
	summary.AccountsFailed = len(table.Failures())
	summary.AccountsDropped = table.Pending()

	return table
}
