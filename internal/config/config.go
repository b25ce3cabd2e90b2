package config

import (
	"log"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "MACKINAC_CONFIG"
	dataFolderEnv    = "MACKINAC_DATA"
	storePathEnv     = "MACKINAC_STORE"
	searchProgramEnv = "MACKINAC_SEARCH_PROGRAM"
	apiURLEnv        = "MACKINAC_API_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Likelihood LikelihoodConfig `yaml:"likelihood"`
	Data       DataConfig       `yaml:"data"`
	Store      StoreConfig      `yaml:"store"`
	Genome     GenomeConfig     `yaml:"genome"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

// SearchConfig describes the sequence search tool and its database.
type SearchConfig struct {
	ProgramName  string `yaml:"programName"` // usearch or blast
	ProgramPath  string `yaml:"programPath"`
	DatabasePath string `yaml:"databasePath"`
	EValue       string `yaml:"evalue"` // passed through to the tool unchanged
	Accel        string `yaml:"accel"`
	Threads      string `yaml:"threads"`
}

// LikelihoodConfig holds the calculation parameters.
type LikelihoodConfig struct {
	PseudoCount     float64 `yaml:"pseudoCount"`
	DilutionPercent float64 `yaml:"dilutionPercent"`
	Separator       string  `yaml:"separator"`
	WorkFolder      string  `yaml:"workFolder"`
	Debug           bool    `yaml:"debug"`
}

// DataConfig locates the downloaded reference files.
type DataConfig struct {
	Folder           string `yaml:"folder"`
	FidRoleFile      string `yaml:"fidRoleFile"`
	ProteinFastaFile string `yaml:"proteinFastaFile"`
}

// StoreConfig describes the local model store.
type StoreConfig struct {
	DatabasePath string `yaml:"databasePath"`
}

// GenomeConfig describes the annotation service.
type GenomeConfig struct {
	APIURL string `yaml:"apiUrl"`
}

// JobsConfig controls polling of remote job services.
type JobsConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// FidRolePath returns the full path of the feature to roleset mapping file.
func (c Config) FidRolePath() string {
	return path.Join(c.Data.Folder, c.Data.FidRoleFile)
}

// ProteinFastaPath returns the full path of the reference protein file.
func (c Config) ProteinFastaPath() string {
	return path.Join(c.Data.Folder, c.Data.ProteinFastaFile)
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if p := os.Getenv(configPathEnv); p != "" {
		if raw, err := os.ReadFile(p); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", p, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", p, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataFolderEnv); v != "" {
		c.Data.Folder = v
	}

	if v := os.Getenv(storePathEnv); v != "" {
		c.Store.DatabasePath = v
	}

	if v := os.Getenv(searchProgramEnv); v != "" {
		c.Search.ProgramPath = v
	}

	if v := os.Getenv(apiURLEnv); v != "" {
		c.Genome.APIURL = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Search.ProgramName != "" {
		base.Search.ProgramName = override.Search.ProgramName
	}
	if override.Search.ProgramPath != "" {
		base.Search.ProgramPath = override.Search.ProgramPath
	}
	if override.Search.DatabasePath != "" {
		base.Search.DatabasePath = override.Search.DatabasePath
	}
	if override.Search.EValue != "" {
		base.Search.EValue = override.Search.EValue
	}
	if override.Search.Accel != "" {
		base.Search.Accel = override.Search.Accel
	}
	if override.Search.Threads != "" {
		base.Search.Threads = override.Search.Threads
	}

	if override.Likelihood.PseudoCount != 0 {
		base.Likelihood.PseudoCount = override.Likelihood.PseudoCount
	}
	if override.Likelihood.DilutionPercent != 0 {
		base.Likelihood.DilutionPercent = override.Likelihood.DilutionPercent
	}
	if override.Likelihood.Separator != "" {
		base.Likelihood.Separator = override.Likelihood.Separator
	}
	if override.Likelihood.WorkFolder != "" {
		base.Likelihood.WorkFolder = override.Likelihood.WorkFolder
	}
	if override.Likelihood.Debug {
		base.Likelihood.Debug = true
	}

	if override.Data.Folder != "" {
		base.Data.Folder = override.Data.Folder
	}
	if override.Data.FidRoleFile != "" {
		base.Data.FidRoleFile = override.Data.FidRoleFile
	}
	if override.Data.ProteinFastaFile != "" {
		base.Data.ProteinFastaFile = override.Data.ProteinFastaFile
	}

	if override.Store.DatabasePath != "" {
		base.Store.DatabasePath = override.Store.DatabasePath
	}

	if override.Genome.APIURL != "" {
		base.Genome.APIURL = override.Genome.APIURL
	}

	if override.Jobs.PollInterval != 0 {
		base.Jobs.PollInterval = override.Jobs.PollInterval
	}
	if override.Jobs.Timeout != 0 {
		base.Jobs.Timeout = override.Jobs.Timeout
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Search: SearchConfig{
			ProgramName:  "usearch",
			ProgramPath:  "/usr/bin/usearch",
			DatabasePath: "./data/protein.udb",
			EValue:       "1E-5",
			Accel:        "0.33",
			Threads:      "4",
		},
		Likelihood: LikelihoodConfig{
			PseudoCount:     40.0,
			DilutionPercent: 80.0,
			Separator:       "///",
			WorkFolder:      "./work",
			Debug:           false,
		},
		Data: DataConfig{
			Folder:           "./data",
			FidRoleFile:      "otu_fid_role.tsv",
			ProteinFastaFile: "protein.fasta",
		},
		Store: StoreConfig{
			DatabasePath: "./data/db/mackinac.db",
		},
		Genome: GenomeConfig{
			APIURL: "https://p3.theseed.org/services/data_api",
		},
		Jobs: JobsConfig{
			PollInterval: 10 * time.Second,
			Timeout:      30 * time.Minute,
		},
	}
}
