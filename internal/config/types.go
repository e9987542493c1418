package config

// Config is the top-level configuration parsed from checkgate YAML.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Stages  StagesConfig  `yaml:"stages"`
	Doctor  DoctorConfig  `yaml:"doctor"`
	History HistoryConfig `yaml:"history"`
}

// ProjectConfig identifies the project under verification.
type ProjectConfig struct {
	Root string `yaml:"root"`
}

// StageConfig defines the commands behind one verification stage.
// Timeouts are duration strings ("3m", "90s"); empty means the builtin
// default for that stage.
type StageConfig struct {
	Command    string `yaml:"command"`
	CICommand  string `yaml:"ci_command"`
	FixCommand string `yaml:"fix_command"`
	Timeout    string `yaml:"timeout"`
}

// StagesConfig holds one entry per verification stage.
type StagesConfig struct {
	Install   StageConfig `yaml:"install"`
	Build     StageConfig `yaml:"build"`
	Lint      StageConfig `yaml:"lint"`
	Typecheck StageConfig `yaml:"typecheck"`
	Test      StageConfig `yaml:"test"`
	Docs      StageConfig `yaml:"docs"`
}

// DoctorConfig defines the commands behind doctor steps.
type DoctorConfig struct {
	Unused StageConfig `yaml:"unused"`
}

// HistoryConfig controls run recording. The zero value records to the default
// database path.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}
