package config

// QualityPolicy holds the tunable weights of the quality gate. The exact
// weighting is policy; the gate's hard invariants (an all-uniform file fails,
// a file with reasonable variation passes) hold for any sane values.
type QualityPolicy struct {
	// NonUniformWeight scales the fraction of relevant columns that vary.
	NonUniformWeight float64 `yaml:"non_uniform_weight"`
	// DiversityWeight scales the mean normalized entropy of varying columns.
	DiversityWeight float64 `yaml:"diversity_weight"`
	// PassThreshold is the minimum aggregate score an import must reach.
	PassThreshold float64 `yaml:"pass_threshold"`
	// MinSampleRows is the row count below which the sample is flagged small.
	MinSampleRows int `yaml:"min_sample_rows"`
	// SmallSampleFactor discounts the score of a small sample. Small samples
	// are flagged, not auto-failed, so keep this well above zero.
	SmallSampleFactor float64 `yaml:"small_sample_factor"`
}

// VerifyPolicy holds field-selection weights for the breach verifier.
type VerifyPolicy struct {
	// InCaseWeight scales the in-case statistical signal of a candidate field.
	InCaseWeight float64 `yaml:"in_case_weight"`
	// HistoryWeight scales the field's historical ledger success rate.
	HistoryWeight float64 `yaml:"history_weight"`
	// NeutralPrior is the assumed success rate for a (log type, field) pair
	// the ledger has never seen.
	NeutralPrior float64 `yaml:"neutral_prior"`
}

// Config is the full tool configuration, loaded from veracity.yaml.
type Config struct {
	// DataDir holds one SQLite store per case id.
	DataDir string `yaml:"data_dir"`
	// LedgerPath is the shared cross-case field-usage ledger.
	LedgerPath string `yaml:"ledger_path"`
	// LocaleDayFirst is the date-order fallback when a file never
	// disambiguates itself (no numeric component above 12).
	LocaleDayFirst bool `yaml:"locale_day_first"`
	// HomeLocations are origin countries considered expected for the tenant.
	// A confirmed success from anywhere else is a breach indicator.
	HomeLocations []string `yaml:"home_locations"`
	// CandidateFields overrides the per-log-type candidate fields for the
	// auth-outcome role, keyed by log type name.
	CandidateFields map[string][]string `yaml:"candidate_fields"`

	Quality QualityPolicy `yaml:"quality"`
	Verify  VerifyPolicy  `yaml:"verify"`
}

// Default returns a complete configuration so the tool runs without a file.
func Default() *Config {
	return &Config{
		DataDir:        ".veracity/cases",
		LedgerPath:     ".veracity/ledger.db",
		LocaleDayFirst: false,
		HomeLocations:  []string{"US"},
		Quality: QualityPolicy{
			NonUniformWeight:  0.6,
			DiversityWeight:   0.4,
			PassThreshold:     0.5,
			MinSampleRows:     10,
			SmallSampleFactor: 0.75,
		},
		Verify: VerifyPolicy{
			InCaseWeight:  0.65,
			HistoryWeight: 0.35,
			NeutralPrior:  0.5,
		},
	}
}
