package config

import (
	"strings"
	"time"

	"golang-move-import-service/internal/importer"
	"golang-move-import-service/internal/lock"
	"golang-move-import-service/internal/models"
	"golang-move-import-service/internal/parsers"
	"golang-move-import-service/internal/reporter"
	"golang-move-import-service/internal/splitter"
	"golang-move-import-service/internal/store"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI
const EnvPrefix = "MOVEIMPORT"

// Configuration keys. Nested keys map to sections of the config file and to
// MOVEIMPORT_<SECTION>_<KEY> environment variables.
const (
	KeyCompany            = "company"
	KeyFormat             = "format"
	KeyEncoding           = "encoding"
	KeyDelimiter          = "delimiter"
	KeyDateFormat         = "date-format"
	KeyHasHeader          = "has-header"
	KeyPolicy             = "policy"
	KeySkipZeroLines      = "skip-zero-lines"
	KeyDateSpansLines     = "date-spans-lines"
	KeyKeepExistingNaming = "keep-existing-naming"
	KeyForceDate          = "force-date"
	KeyForceJournal       = "force-journal"
	KeyForceLabel         = "force-label"
	KeyForceRef           = "force-ref"
	KeyPostAndReconcile   = "post-and-reconcile"
	KeyDryRun             = "dry-run"
	KeyCurrency           = "currency"

	KeyOutputFormat = "output-format"
	KeyOutputFile   = "output-file"
	KeyMaxEntries   = "max-entries"
	KeyProgress     = "progress"

	KeyDBDriver      = "database.driver"
	KeyDBDSN         = "database.dsn"
	KeyDBUser        = "database.user"
	KeyDBPassword    = "database.password"
	KeyDBHost        = "database.host"
	KeyDBPort        = "database.port"
	KeyDBName        = "database.name"
	KeyDBAutoMigrate = "database.auto-migrate"
	KeyDBMaxOpen     = "database.max-open-conns"

	KeyRedisAddr     = "redis.addr"
	KeyRedisPassword = "redis.password"
	KeyRedisDB       = "redis.db"
	KeyLockTTL       = "redis.lock-ttl"
	KeyLockRetries   = "redis.lock-retries"

	KeyVerbose   = "verbose"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyLogFile   = "log.file"
)

// forceDateLayout is the layout of the force-date setting
const forceDateLayout = "2006-01-02"

// SetDefaults registers the defaults of every setting on v
func SetDefaults(v *viper.Viper) {
	parserDefaults := parsers.DefaultOptions()
	lockDefaults := lock.DefaultConfig()

	v.SetDefault(KeyFormat, string(parsers.FormatGenericCSV))
	v.SetDefault(KeyEncoding, string(parserDefaults.Encoding))
	v.SetDefault(KeyDelimiter, string(parserDefaults.Delimiter))
	v.SetDefault(KeyDateFormat, parserDefaults.DateFormat)
	v.SetDefault(KeyPolicy, string(splitter.PolicyBalanced))
	v.SetDefault(KeyOutputFormat, string(reporter.FormatConsole))
	v.SetDefault(KeyMaxEntries, reporter.DefaultReportConfig().MaxConsoleEntries)

	v.SetDefault(KeyDBDriver, store.DriverMySQL)
	v.SetDefault(KeyDBHost, "localhost")
	v.SetDefault(KeyDBPort, "3306")
	v.SetDefault(KeyDBMaxOpen, 10)

	v.SetDefault(KeyRedisDB, lockDefaults.DB)
	v.SetDefault(KeyLockTTL, lockDefaults.TTL)
	v.SetDefault(KeyLockRetries, lockDefaults.Retries)

	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// BindEnv makes v read MOVEIMPORT_* variables, dashes and dots becoming
// underscores
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// CreateImportOptions builds the options of one run from v
func CreateImportOptions(v *viper.Viper) (*importer.Options, error) {
	format, err := parsers.ParseFormat(v.GetString(KeyFormat))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFormat, v.GetString(KeyFormat), err).
			WithSuggestion("run 'moveimport formats' to list supported formats")
	}

	opts := importer.DefaultOptions()
	opts.Company = models.ID(v.GetInt64(KeyCompany))
	opts.Format = format
	opts.Parser = parsers.Options{
		Encoding:   parsers.Encoding(strings.ToLower(v.GetString(KeyEncoding))),
		Delimiter:  parsers.Delimiter(strings.ToLower(v.GetString(KeyDelimiter))),
		DateFormat: v.GetString(KeyDateFormat),
		HasHeader:  v.GetBool(KeyHasHeader),
	}
	opts.Policy = splitter.Policy(strings.ToLower(v.GetString(KeyPolicy)))
	opts.SkipZeroLines = v.GetBool(KeySkipZeroLines)
	opts.DateSpansLines = v.GetBool(KeyDateSpansLines)
	opts.KeepExistingNaming = v.GetBool(KeyKeepExistingNaming)
	opts.ForceJournal = v.GetString(KeyForceJournal)
	opts.ForceLabel = v.GetString(KeyForceLabel)
	opts.ForceRef = v.GetString(KeyForceRef)
	opts.PostAndReconcile = v.GetBool(KeyPostAndReconcile)
	opts.DryRun = v.GetBool(KeyDryRun)
	opts.CurrencyCode = v.GetString(KeyCurrency)

	if raw := strings.TrimSpace(v.GetString(KeyForceDate)); raw != "" {
		date, err := time.Parse(forceDateLayout, raw)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyForceDate, raw, err).
				WithSuggestion("use the YYYY-MM-DD format")
		}
		opts.ForceDate = date
	}

	if opts.DryRun && opts.PostAndReconcile {
		return nil, errors.ConfigurationError(errors.CodeConfigConflict, KeyPostAndReconcile, true, nil).
			WithSuggestion("a dry run creates nothing, drop --post-and-reconcile or --dry-run")
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// CreateStoreConfig builds the database settings from v. Without an explicit
// DSN, a MySQL DSN is assembled from the connection parts.
func CreateStoreConfig(v *viper.Viper) (store.Config, error) {
	cfg := store.Config{
		Driver:       strings.ToLower(v.GetString(KeyDBDriver)),
		DSN:          v.GetString(KeyDBDSN),
		MaxOpenConns: v.GetInt(KeyDBMaxOpen),
		MaxIdleConns: v.GetInt(KeyDBMaxOpen) / 2,
		AutoMigrate:  v.GetBool(KeyDBAutoMigrate),
	}
	if cfg.Driver == store.DriverMySQL {
		cfg.ConnMaxLifetime = time.Hour
	}

	if cfg.DSN == "" {
		if cfg.Driver != store.DriverMySQL || v.GetString(KeyDBName) == "" {
			return store.Config{}, errors.ConfigurationError(errors.CodeMissingConfig, KeyDBDSN, nil, nil)
		}
		cfg.DSN = store.MySQLDSN(
			v.GetString(KeyDBUser),
			v.GetString(KeyDBPassword),
			v.GetString(KeyDBHost),
			v.GetString(KeyDBPort),
			v.GetString(KeyDBName),
		)
	}

	switch cfg.Driver {
	case store.DriverMySQL, store.DriverSQLite:
	default:
		return store.Config{}, errors.ConfigurationError(errors.CodeInvalidConfig, KeyDBDriver, cfg.Driver, nil).
			WithSuggestion("use mysql or sqlite")
	}
	if err := cfg.Validate(); err != nil {
		return store.Config{}, err
	}
	return cfg, nil
}

// CreateLockConfig builds the redis lock settings from v. The second result
// is false when no redis address is configured.
func CreateLockConfig(v *viper.Viper) (lock.Config, bool, error) {
	cfg := lock.DefaultConfig()
	cfg.Addr = v.GetString(KeyRedisAddr)
	cfg.Password = v.GetString(KeyRedisPassword)
	cfg.DB = v.GetInt(KeyRedisDB)
	cfg.TTL = v.GetDuration(KeyLockTTL)
	cfg.Retries = v.GetInt(KeyLockRetries)
	if cfg.Addr == "" {
		return cfg, false, nil
	}
	if err := cfg.Validate(); err != nil {
		return lock.Config{}, false, err
	}
	return cfg, true, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, maxEntries int) (*reporter.ReportConfig, error) {
	outputFormat, err := reporter.ParseOutputFormat(format)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, format, err)
	}

	config := reporter.DefaultReportConfig()
	config.Format = outputFormat
	if maxEntries > 0 {
		config.MaxConsoleEntries = maxEntries
	}

	switch outputFormat {
	case reporter.FormatJSON:
		config.IncludeStages = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeStages = false
	}
	return config, nil
}

// CreateLoggerConfig builds the logger settings from v
func CreateLoggerConfig(v *viper.Viper) *logger.Config {
	config := logger.DefaultConfig()
	if v.GetBool(KeyVerbose) {
		config = logger.DebugConfig()
	} else if level := v.GetString(KeyLogLevel); level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format := v.GetString(KeyLogFormat); format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if file := v.GetString(KeyLogFile); file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}
	return config
}
