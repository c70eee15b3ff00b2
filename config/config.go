// Package config loads node configuration, modeled on
// tendermint/config.Config: a BaseConfig plus per-component sections,
// loaded from a TOML file via viper the way cmd/commands/init.go's sibling
// commands expect tendermint's own cfg.Config to be loaded.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	tmcfg "github.com/tendermint/tendermint/config"
)

const (
	defaultConfigDir    = "config"
	defaultDataDir      = "data"
	defaultConfigFile   = "config.toml"
	defaultGenesisFile  = "genesis.json"
	defaultWalletKey    = "priv_validator_key.json"
	defaultNodeKeyFile  = "node_key.json"
)

// BaseConfig mirrors tendermint's BaseConfig subset this chain actually
// uses: root directory, moniker and the file names derived from it.
type BaseConfig struct {
	RootDir string `mapstructure:"home"`
	Moniker string `mapstructure:"moniker"`

	WalletKeyFile  string `mapstructure:"wallet_key_file"`
	NodeKeyFile    string `mapstructure:"node_key_file"`
	GenesisFile    string `mapstructure:"genesis_file"`
	RecoveryLogDir string `mapstructure:"recovery_log_dir"`
	LedgerDir      string `mapstructure:"ledger_dir"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ConsensusConfig is the dBFT engine's tunables, mapped onto
// consensus.Params at wiring time.
type ConsensusConfig struct {
	MillisecondsPerBlock   uint32 `mapstructure:"msec_per_block"`
	PrimaryTimerMultiplier uint32 `mapstructure:"primary_timer_multiplier"`
	MaxTxPerBlock          int    `mapstructure:"max_tx_per_block"`
	MaxBlockSize           int64  `mapstructure:"max_block_size"`
	MaxBlockSystemFee      int64  `mapstructure:"max_block_system_fee"`
	IgnoreRecoveryLogs     bool   `mapstructure:"ignore_recovery_logs"`
}

func (c ConsensusConfig) BlockTime() time.Duration {
	return time.Duration(c.MillisecondsPerBlock) * time.Millisecond
}

// RPCConfig configures the status/round HTTP and websocket endpoints.
type RPCConfig struct {
	ListenAddress string `mapstructure:"laddr"`
}

// P2P reuses tendermint's own P2PConfig wholesale rather than re-declaring
// a parallel subset: node.go's transport/switch wiring takes this type
// directly, the same way createSwitch takes config.P2P.
type Config struct {
	BaseConfig `mapstructure:",squash"`

	Consensus ConsensusConfig  `mapstructure:"consensus"`
	P2P       *tmcfg.P2PConfig `mapstructure:"p2p"`
	RPC       RPCConfig        `mapstructure:"rpc"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseConfig: BaseConfig{
			Moniker:        "anonymous",
			WalletKeyFile:  filepath.Join(defaultConfigDir, defaultWalletKey),
			NodeKeyFile:    filepath.Join(defaultConfigDir, defaultNodeKeyFile),
			GenesisFile:    filepath.Join(defaultConfigDir, defaultGenesisFile),
			RecoveryLogDir: filepath.Join(defaultDataDir, "recovery"),
			LedgerDir:      filepath.Join(defaultDataDir, "ledger"),
			LogLevel:       "info",
			LogFormat:      "plain",
		},
		Consensus: ConsensusConfig{
			MillisecondsPerBlock:   3000,
			PrimaryTimerMultiplier: 2,
			MaxTxPerBlock:          512,
			MaxBlockSize:           1 << 20,
			MaxBlockSystemFee:      0,
		},
		P2P: tmcfg.DefaultP2PConfig(),
		RPC: RPCConfig{
			ListenAddress: "tcp://127.0.0.1:26657",
		},
	}
}

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

func (c *Config) WalletKeyFilePath() string  { return c.abs(c.WalletKeyFile) }
func (c *Config) NodeKeyFilePath() string    { return c.abs(c.NodeKeyFile) }
func (c *Config) GenesisFilePath() string    { return c.abs(c.GenesisFile) }
func (c *Config) RecoveryLogDirPath() string { return c.abs(c.RecoveryLogDir) }
func (c *Config) LedgerDirPath() string      { return c.abs(c.LedgerDir) }

// Load reads configFile (a TOML file) rooted at rootDir, falling back to
// DefaultConfig values for anything unset.
func Load(rootDir, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(rootDir, configFile))
	cfg := DefaultConfig()
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.RootDir = rootDir
	return cfg, nil
}
