package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Detector DetectorConfig `mapstructure:"detector"`
	Sim      SimConfig      `mapstructure:"sim"`
	Perf     PerfConfig     `mapstructure:"perf"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type BacktestConfig struct {
	StartingCapitalUSD float64 `mapstructure:"starting_capital_usd"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MinMarketVolumeUSD float64 `mapstructure:"min_market_volume_usd"`
	Seed               uint64  `mapstructure:"seed"`
	ProgressEvery      int     `mapstructure:"progress_every"`
}

type DatasetConfig struct {
	// TimeLayout parses every timestamp column.
	TimeLayout string `mapstructure:"time_layout"`

	// MaxSkipRate is the tolerated fraction of malformed rows before the run
	// fails fast instead of skipping further records.
	MaxSkipRate float64 `mapstructure:"max_skip_rate"`

	// TimestampToleranceSec bounds how far a trade timestamp may regress
	// against its predecessor before the row counts as malformed.
	TimestampToleranceSec int `mapstructure:"timestamp_tolerance_sec"`

	TradeColumns  TradeColumns  `mapstructure:"trade_columns"`
	MarketColumns MarketColumns `mapstructure:"market_columns"`
}

// TradeColumns maps mandatory trade fields to CSV header names. Column naming
// is a configuration concern; types and ranges are not.
type TradeColumns struct {
	Timestamp string `mapstructure:"timestamp"`
	MarketID  string `mapstructure:"market_id"`
	Wallet    string `mapstructure:"wallet"`
	Side      string `mapstructure:"side"`
	Price     string `mapstructure:"price"`
	AmountUSD string `mapstructure:"amount_usd"`
}

type MarketColumns struct {
	ID         string `mapstructure:"id"`
	Question   string `mapstructure:"question"`
	TokenYes   string `mapstructure:"token_yes"`
	TokenNo    string `mapstructure:"token_no"`
	VolumeUSD  string `mapstructure:"volume_usd"`
	CloseTime  string `mapstructure:"close_time"`
	Resolution string `mapstructure:"resolution"`
}

// DetectorConfig carries one named threshold set per detector so operators
// can retune rules without touching detector logic.
type DetectorConfig struct {
	FreshAccount     FreshAccountConfig     `mapstructure:"fresh_account"`
	ProvenWinner     ProvenWinnerConfig     `mapstructure:"proven_winner"`
	VolumeSpike      VolumeSpikeConfig      `mapstructure:"volume_spike"`
	WalletClustering WalletClusteringConfig `mapstructure:"wallet_clustering"`
	PerfectTiming    PerfectTimingConfig    `mapstructure:"perfect_timing"`
}

type FreshAccountConfig struct {
	MaxAccountAgeHours   float64 `mapstructure:"max_account_age_hours"`
	MinAmountUSD         float64 `mapstructure:"min_amount_usd"`
	MaxTradeCount        int     `mapstructure:"max_trade_count"`
	MaxHoursToResolution float64 `mapstructure:"max_hours_to_resolution"`
	Confidence           float64 `mapstructure:"confidence"`
	CooldownHours        float64 `mapstructure:"cooldown_hours"`
}

type ProvenWinnerConfig struct {
	MinWinRate        float64 `mapstructure:"min_win_rate"`
	MinTradeCount     int     `mapstructure:"min_trade_count"`
	AvgBetMultiple    float64 `mapstructure:"avg_bet_multiple"`
	MinTotalProfitUSD float64 `mapstructure:"min_total_profit_usd"`
	Confidence        float64 `mapstructure:"confidence"`
	CooldownHours     float64 `mapstructure:"cooldown_hours"`
}

type VolumeSpikeConfig struct {
	SpikeMultiple    float64 `mapstructure:"spike_multiple"`
	MaxPriceChange1h float64 `mapstructure:"max_price_change_1h"`
	MinHourVolumeUSD float64 `mapstructure:"min_hour_volume_usd"`
	Confidence       float64 `mapstructure:"confidence"`
	CooldownHours    float64 `mapstructure:"cooldown_hours"`
}

type WalletClusteringConfig struct {
	WindowHours           float64 `mapstructure:"window_hours"`
	MinWallets            int     `mapstructure:"min_wallets"`
	MinFreshWallets       int     `mapstructure:"min_fresh_wallets"`
	FreshWalletMaxAgeDays float64 `mapstructure:"fresh_wallet_max_age_days"`
	MinCombinedUSD        float64 `mapstructure:"min_combined_usd"`
	Confidence            float64 `mapstructure:"confidence"`
	CooldownHours         float64 `mapstructure:"cooldown_hours"`
}

type PerfectTimingConfig struct {
	MinEarlyEntries int     `mapstructure:"min_early_entries"`
	MinWins         int     `mapstructure:"min_wins"`
	Confidence      float64 `mapstructure:"confidence"`
	CooldownHours   float64 `mapstructure:"cooldown_hours"`
}

type SimConfig struct {
	MaxOpenPositions    int     `mapstructure:"max_open_positions"`
	FractionalKelly     float64 `mapstructure:"fractional_kelly"`
	MaxPositionFraction float64 `mapstructure:"max_position_fraction"`
	MinPositionUSD      float64 `mapstructure:"min_position_usd"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TimeDecayHours      float64 `mapstructure:"time_decay_hours"`
	TimeDecayMinGainPct float64 `mapstructure:"time_decay_min_gain_pct"`
	FeeRate             float64 `mapstructure:"fee_rate"`
	SlippageMinBps      float64 `mapstructure:"slippage_min_bps"`
	SlippageMaxBps      float64 `mapstructure:"slippage_max_bps"`
}

type PerfConfig struct {
	TradingPeriodsPerYear float64 `mapstructure:"trading_periods_per_year"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if !envOnly && path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() Config {
	cfg, _ := Load("", true)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("backtest.starting_capital_usd", 5000)
	v.SetDefault("backtest.min_confidence", 0.65)
	v.SetDefault("backtest.min_market_volume_usd", 10000)
	v.SetDefault("backtest.seed", 1)
	v.SetDefault("backtest.progress_every", 10000)

	v.SetDefault("dataset.time_layout", "2006-01-02T15:04:05Z07:00")
	v.SetDefault("dataset.max_skip_rate", 0.10)
	v.SetDefault("dataset.timestamp_tolerance_sec", 0)
	v.SetDefault("dataset.trade_columns.timestamp", "timestamp")
	v.SetDefault("dataset.trade_columns.market_id", "market_id")
	v.SetDefault("dataset.trade_columns.wallet", "wallet")
	v.SetDefault("dataset.trade_columns.side", "side")
	v.SetDefault("dataset.trade_columns.price", "price")
	v.SetDefault("dataset.trade_columns.amount_usd", "usd_amount")
	v.SetDefault("dataset.market_columns.id", "id")
	v.SetDefault("dataset.market_columns.question", "question")
	v.SetDefault("dataset.market_columns.token_yes", "token1")
	v.SetDefault("dataset.market_columns.token_no", "token2")
	v.SetDefault("dataset.market_columns.volume_usd", "volume")
	v.SetDefault("dataset.market_columns.close_time", "closedTime")
	v.SetDefault("dataset.market_columns.resolution", "resolution")

	v.SetDefault("detector.fresh_account.max_account_age_hours", 168)
	v.SetDefault("detector.fresh_account.min_amount_usd", 10000)
	v.SetDefault("detector.fresh_account.max_trade_count", 3)
	v.SetDefault("detector.fresh_account.max_hours_to_resolution", 48)
	v.SetDefault("detector.fresh_account.confidence", 0.95)
	v.SetDefault("detector.fresh_account.cooldown_hours", 0)

	v.SetDefault("detector.proven_winner.min_win_rate", 0.70)
	v.SetDefault("detector.proven_winner.min_trade_count", 20)
	v.SetDefault("detector.proven_winner.avg_bet_multiple", 3)
	v.SetDefault("detector.proven_winner.min_total_profit_usd", 50000)
	v.SetDefault("detector.proven_winner.confidence", 0.75)
	v.SetDefault("detector.proven_winner.cooldown_hours", 0)

	v.SetDefault("detector.volume_spike.spike_multiple", 10)
	v.SetDefault("detector.volume_spike.max_price_change_1h", 0.05)
	v.SetDefault("detector.volume_spike.min_hour_volume_usd", 5000)
	v.SetDefault("detector.volume_spike.confidence", 0.65)
	v.SetDefault("detector.volume_spike.cooldown_hours", 0)

	v.SetDefault("detector.wallet_clustering.window_hours", 24)
	v.SetDefault("detector.wallet_clustering.min_wallets", 3)
	v.SetDefault("detector.wallet_clustering.min_fresh_wallets", 2)
	v.SetDefault("detector.wallet_clustering.fresh_wallet_max_age_days", 30)
	v.SetDefault("detector.wallet_clustering.min_combined_usd", 25000)
	v.SetDefault("detector.wallet_clustering.confidence", 0.65)
	v.SetDefault("detector.wallet_clustering.cooldown_hours", 0)

	v.SetDefault("detector.perfect_timing.min_early_entries", 4)
	v.SetDefault("detector.perfect_timing.min_wins", 4)
	v.SetDefault("detector.perfect_timing.confidence", 0.80)
	v.SetDefault("detector.perfect_timing.cooldown_hours", 0)

	v.SetDefault("sim.max_open_positions", 5)
	v.SetDefault("sim.fractional_kelly", 0.25)
	v.SetDefault("sim.max_position_fraction", 0.10)
	v.SetDefault("sim.min_position_usd", 10)
	v.SetDefault("sim.stop_loss_pct", 0.15)
	v.SetDefault("sim.time_decay_hours", 6)
	v.SetDefault("sim.time_decay_min_gain_pct", 0.05)
	v.SetDefault("sim.fee_rate", 0.02)
	v.SetDefault("sim.slippage_min_bps", 10)
	v.SetDefault("sim.slippage_max_bps", 30)

	v.SetDefault("perf.trading_periods_per_year", 252)
}
