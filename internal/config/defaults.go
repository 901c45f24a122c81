package config

// Default configuration values.
const (
	DefaultTableName   = "data_table"
	DefaultRuleTimeout = "30s"
	DefaultSampleSize  = 1000
	DefaultSampleSeed  = 42
	DefaultTargetType  = "duckdb"
	DefaultTargetPath  = ":memory:"
)

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.RuleTimeout == "" {
		c.RuleTimeout = DefaultRuleTimeout
	}
	if c.SampleSize == 0 {
		c.SampleSize = DefaultSampleSize
	}
	if c.SampleSeed == 0 {
		c.SampleSeed = DefaultSampleSeed
	}
	if c.Target == nil {
		c.Target = &TargetConfig{}
	}
	if c.Target.Type == "" {
		c.Target.Type = DefaultTargetType
	}
	if c.Target.Path == "" {
		c.Target.Path = DefaultTargetPath
	}
}
