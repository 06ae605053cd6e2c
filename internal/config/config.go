package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/gmx-exporter/internal/domain"
)

const serviceName = "gmx-exporter"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"` // 0 means unbounded
}

// RetryConfig holds the retry policy shared by every stage
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
}

// RPCConfig holds RPC client configuration
type RPCConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables throttling
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// NetworkConfig holds the endpoint and contract addresses of one chain
type NetworkConfig struct {
	Name             string `mapstructure:"-"`
	RPCURL           string `mapstructure:"rpc_url"`
	ChainID          uint64 `mapstructure:"chain_id"`
	DeploymentBlock  uint64 `mapstructure:"deployment_block"`
	Multicall        string `mapstructure:"multicall"`
	GMX              string `mapstructure:"gmx"`
	EsGMX            string `mapstructure:"esgmx"`
	GLP              string `mapstructure:"glp"`
	SGMX             string `mapstructure:"sgmx"`
	SGLP             string `mapstructure:"sglp"`
	StakedGMXTracker string `mapstructure:"staked_gmx_tracker"`
	FeeGMXTracker    string `mapstructure:"fee_gmx_tracker"`
	BonusGMXTracker  string `mapstructure:"bonus_gmx_tracker"`
	GMXVester        string `mapstructure:"gmx_vester"`
	GLPVester        string `mapstructure:"glp_vester"`
}

// Config holds configuration for gmx-exporter
type Config struct {
	BaseConfig          `mapstructure:",squash"`
	Network             string                   `mapstructure:"network"`
	OutputDir           string                   `mapstructure:"output_dir"`
	ClassifyEOA         bool                     `mapstructure:"classify_eoa"`
	BlockRangeLimit     uint64                   `mapstructure:"block_range_limit"`
	RecipientTopicIndex int                      `mapstructure:"recipient_topic_index"`
	SkipZeroAddress     bool                     `mapstructure:"skip_zero_address"`
	ProgressEvery       int                      `mapstructure:"progress_every"`
	MetricsAddr         string                   `mapstructure:"metrics_addr"`
	Worker              WorkerConfig             `mapstructure:"worker"`
	Retry               RetryConfig              `mapstructure:"retry"`
	RPC                 RPCConfig                `mapstructure:"rpc"`
	Networks            map[string]NetworkConfig `mapstructure:"networks"`
}

// builtinNetworks are the GMX deployments known out of the box
var builtinNetworks = map[string]NetworkConfig{
	"arbitrum": {
		RPCURL:           "https://arb1.arbitrum.io/rpc",
		ChainID:          42161,
		DeploymentBlock:  147903,
		Multicall:        domain.MULTICALL3_ADDRESS,
		GMX:              "0xfc5A1A6EB076a2C7aD06eD22C90d7E710E35ad0a",
		EsGMX:            "0xf42Ae1D54fd613C9bb14810b0588FaAa09a426cA",
		GLP:              "0x4277f8F2c384827B5273592FF7CeBd9f2C1ac258",
		SGMX:             "0x908C4D94D34924765f1eDc22A1DD098397c59dD4",
		SGLP:             "0x1aDDD80E6039594eE970E5872D247bf0414C8903",
		StakedGMXTracker: "0x908C4D94D34924765f1eDc22A1DD098397c59dD4",
		FeeGMXTracker:    "0xd2D1162512F927a7e282Ef43a362659E4F2a728F",
		BonusGMXTracker:  "0x4d268a7d4C16ceB5a606c173Bd974984343fea13",
		GMXVester:        "0x199070DDfd1CFb69173aa2F7e20906F26B363004",
		GLPVester:        "0xA75287d2f8b217273E7FCD7E86eF07D33972042E",
	},
	"avalanche": {
		RPCURL:           "https://api.avax.network/ext/bc/C/rpc",
		ChainID:          43114,
		DeploymentBlock:  8352150,
		Multicall:        domain.MULTICALL3_ADDRESS,
		GMX:              "0x62edc0692BD897D2295872a9FFCac5425011c661",
		EsGMX:            "0xFf1489227BbAAC61a9209A08929E4c2a526DdD17",
		GLP:              "0x9e295B5B976a184B14aD8cd72413aD846C299660",
		SGMX:             "0x4d268a7d4C16ceB5a606c173Bd974984343fea13",
		SGLP:             "0xaE64d55a6f09E4263421737397D1fdFA71896a69",
		StakedGMXTracker: "0x2bD10f8E93B3669b6d42E74eEedC65dd1B0a1342",
		FeeGMXTracker:    "0x4d268a7d4C16ceB5a606c173Bd974984343fea13",
		BonusGMXTracker:  "0x908C4D94D34924765f1eDc22A1DD098397c59dD4",
		GMXVester:        "0x472361d3cA5F49c8E633FB50385BfaD1e018b445",
		GLPVester:        "0x62331A7Bd1dfB3A7642B7db50B5509E57CA3154A",
	},
}

// networkKeys are the per-network keys, bound for every built-in network
var networkKeys = []string{
	"rpc_url", "chain_id", "deployment_block", "multicall",
	"gmx", "esgmx", "glp", "sgmx", "sglp",
	"staked_gmx_tracker", "fee_gmx_tracker", "bonus_gmx_tracker",
	"gmx_vester", "glp_vester",
}

// Load loads configuration for gmx-exporter
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(serviceName, configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("network", "arbitrum")
	v.SetDefault("output_dir", ".")
	v.SetDefault("classify_eoa", true)
	v.SetDefault("block_range_limit", 9999)
	v.SetDefault("recipient_topic_index", domain.TRANSFER_RECIPIENT_TOPIC_INDEX)
	v.SetDefault("skip_zero_address", true)
	v.SetDefault("progress_every", 100)
	v.SetDefault("worker.pool_size", 4)
	v.SetDefault("worker.queue_size", 0)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_wait", "1s")
	v.SetDefault("retry.max_wait", "2m")
	v.SetDefault("rpc.requests_per_second", 0)
	v.SetDefault("rpc.burst", 1)
	v.SetDefault("rpc.timeout", "1m")
	for name, n := range builtinNetworks {
		setNetworkDefaults(v, name, n)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.BlockRangeLimit == 0 {
		return nil, errors.New("block_range_limit must be positive")
	}
	if cfg.RecipientTopicIndex < 0 {
		return nil, errors.New("recipient_topic_index must not be negative")
	}

	return &cfg, nil
}

// SelectNetwork returns the configuration of the named network, or of the
// configured default network when name is empty
func (c *Config) SelectNetwork(name string) (*NetworkConfig, error) {
	if name == "" {
		name = c.Network
	}
	name = strings.ToLower(name)

	n, ok := c.Networks[name]
	if !ok {
		known := make([]string, 0, len(c.Networks))
		for k := range c.Networks {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrUnknownNetwork, name, strings.Join(known, ", "))
	}

	n.Name = name
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

// Validate checks that every contract address is well formed
func (n *NetworkConfig) Validate() error {
	if n.RPCURL == "" {
		return fmt.Errorf("network %s: rpc_url is required", n.Name)
	}

	addresses := map[string]string{
		"multicall":          n.Multicall,
		"gmx":                n.GMX,
		"esgmx":              n.EsGMX,
		"glp":                n.GLP,
		"sgmx":               n.SGMX,
		"sglp":               n.SGLP,
		"staked_gmx_tracker": n.StakedGMXTracker,
		"fee_gmx_tracker":    n.FeeGMXTracker,
		"bonus_gmx_tracker":  n.BonusGMXTracker,
		"gmx_vester":         n.GMXVester,
		"glp_vester":         n.GLPVester,
	}
	for _, key := range networkKeys {
		value, ok := addresses[key]
		if ok && !common.IsHexAddress(value) {
			return fmt.Errorf("network %s: invalid %s address %q", n.Name, key, value)
		}
	}

	return nil
}

// TransferTokens returns the tokens whose transfer recipients are holder candidates
func (n *NetworkConfig) TransferTokens() []common.Address {
	return []common.Address{
		common.HexToAddress(n.GMX),
		common.HexToAddress(n.GLP),
		common.HexToAddress(n.SGMX),
		common.HexToAddress(n.SGLP),
	}
}

func setNetworkDefaults(v *viper.Viper, name string, n NetworkConfig) {
	prefix := "networks." + name + "."
	v.SetDefault(prefix+"rpc_url", n.RPCURL)
	v.SetDefault(prefix+"chain_id", n.ChainID)
	v.SetDefault(prefix+"deployment_block", n.DeploymentBlock)
	v.SetDefault(prefix+"multicall", n.Multicall)
	v.SetDefault(prefix+"gmx", n.GMX)
	v.SetDefault(prefix+"esgmx", n.EsGMX)
	v.SetDefault(prefix+"glp", n.GLP)
	v.SetDefault(prefix+"sgmx", n.SGMX)
	v.SetDefault(prefix+"sglp", n.SGLP)
	v.SetDefault(prefix+"staked_gmx_tracker", n.StakedGMXTracker)
	v.SetDefault(prefix+"fee_gmx_tracker", n.FeeGMXTracker)
	v.SetDefault(prefix+"bonus_gmx_tracker", n.BonusGMXTracker)
	v.SetDefault(prefix+"gmx_vester", n.GMXVester)
	v.SetDefault(prefix+"glp_vester", n.GLPVester)
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Command directory
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("GMX_EXPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)

	return v
}

// bindAllEnvVars binds every key so env-only values reach Unmarshal
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		// Base config
		"debug",
		"sentry_dsn",
		// Run
		"network",
		"output_dir",
		"classify_eoa",
		"block_range_limit",
		"recipient_topic_index",
		"skip_zero_address",
		"progress_every",
		"metrics_addr",
		// Worker config
		"worker.pool_size",
		"worker.queue_size",
		// Retry config
		"retry.max_attempts",
		"retry.initial_wait",
		"retry.max_wait",
		// RPC config
		"rpc.requests_per_second",
		"rpc.burst",
		"rpc.timeout",
	}

	for name := range builtinNetworks {
		for _, key := range networkKeys {
			keys = append(keys, "networks."+name+"."+key)
		}
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}
