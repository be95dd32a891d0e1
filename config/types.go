package config

// Amounts are decimal strings so values beyond 2^63 survive TOML, and
// addresses accept either syn bech32 or 0x hex.

// Transmuter configures the streaming distributor.
type Transmuter struct {
	ModuleAddress   string   `toml:"ModuleAddress"`
	Governance      string   `toml:"Governance"`
	UnderlyingAsset string   `toml:"UnderlyingAsset"`
	PeriodLength    uint64   `toml:"PeriodLength"`
	IncentiveFixed  string   `toml:"IncentiveFixed"`
	IncentiveBps    uint64   `toml:"IncentiveBps"`
	PageLimit       int      `toml:"PageLimit"`
	Whitelist       []string `toml:"Whitelist"`
}

// Vault configures the collateral facility.
type Vault struct {
	ModuleAddress             string `toml:"ModuleAddress"`
	Governance                string `toml:"Governance"`
	Sentinel                  string `toml:"Sentinel"`
	RewardsSink               string `toml:"RewardsSink"`
	CollateralizationLimitBps uint64 `toml:"CollateralizationLimitBps"`
	HarvestFeeBps             uint64 `toml:"HarvestFeeBps"`
	FlushActivator            string `toml:"FlushActivator"`
	// InitialAdapter, when set, is the strategy the facility opens on.
	InitialAdapter string `toml:"InitialAdapter"`
}

// Token configures the claim token.
type Token struct {
	Symbol string `toml:"Symbol"`
	Admin  string `toml:"Admin"`
	// FacilityCeiling is the issuance ceiling granted to the facility.
	FacilityCeiling string `toml:"FacilityCeiling"`
}

// Strategy registers a reserve the facility may deploy into.
type Strategy struct {
	Address        string `toml:"Address"`
	Asset          string `toml:"Asset"`
	LiquidityLimit string `toml:"LiquidityLimit"`
}

// Assets lists the reserve strategies.
type Assets struct {
	Strategies []Strategy `toml:"Strategies"`
}

// Storage selects the state backend.
type Storage struct {
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
}

// Logging mirrors observability/logging options.
type Logging struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Enabled     bool    `toml:"Enabled"`
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	SampleRatio float64 `toml:"SampleRatio"`
	// MetricsInterval is the export period in seconds.
	MetricsInterval int `toml:"MetricsInterval"`
}

// Balance seeds an account at genesis.
type Balance struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}
