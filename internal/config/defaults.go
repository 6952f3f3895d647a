package config

const (
	defaultConfigPath           = "~/.config/gameshelf/config.toml"
	defaultDataDir              = "~/.local/share/gameshelf"
	defaultLogDir               = "~/.local/share/gameshelf/logs"
	defaultAPIBind              = "127.0.0.1:7420"
	defaultCatalogAEndpoint     = "games"
	defaultCatalogAProxyURL     = "http://127.0.0.1:3000/api/igdb"
	defaultCatalogAImageBaseURL = "https://images.igdb.com/igdb/image/upload/t_cover_big"
	defaultCatalogBBaseURL      = "https://api.rawg.io/api"
	defaultCatalogATimeout      = 10
	defaultCatalogBTimeout      = 10
	defaultCatalogAMaxBatch     = 500
	defaultCatalogBMaxBatch     = 40
	defaultOverridesPath        = "~/.config/gameshelf/overrides.json"
	defaultProfileDBName        = "profiles.db"
	defaultLocalPrefsName       = "preferences.json"
	defaultCookieName           = "gameshelf_search_prefs"
	defaultConsentCookie        = "gameshelf_consent_functional"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		CatalogA: CatalogA{
			ProxyURL:          defaultCatalogAProxyURL,
			Endpoint:          defaultCatalogAEndpoint,
			ImageBaseURL:      defaultCatalogAImageBaseURL,
			RequestsPerSecond: 4,
			Burst:             4,
			TimeoutSeconds:    defaultCatalogATimeout,
			MaxBatch:          defaultCatalogAMaxBatch,
		},
		CatalogB: CatalogB{
			BaseURL:           defaultCatalogBBaseURL,
			RequestsPerSecond: 5,
			Burst:             5,
			TimeoutSeconds:    defaultCatalogBTimeout,
			MaxBatch:          defaultCatalogBMaxBatch,
		},
		Breaker: Breaker{
			FailureRatio:     0.6,
			MinRequests:      10,
			IntervalSeconds:  60,
			OpenSeconds:      30,
			HalfOpenRequests: 3,
		},
		Cache: Cache{
			MappingTTLHours:      24,
			BulkTTLMinutes:       15,
			ValidationTTLHours:   24,
			SearchTTLMinutes:     5,
			SearchMaxEntries:     100,
			SweepIntervalMinutes: 5,
		},
		Resolution: Resolution{
			MappingThreshold:       0.7,
			DuplicateThreshold:     0.85,
			CandidateLimit:         10,
			Concurrency:            4,
			ValidationChunkSize:    10,
			ValidationChunkDelayMS: 200,
			MaxRetries:             3,
			RetryBaseMS:            1000,
			PreloadBatchSize:       5,
			PreloadDelayMS:         100,
			OverridesPath:          defaultOverridesPath,
		},
		Preferences: Preferences{
			CookieName:      defaultCookieName,
			ConsentCookie:   defaultConsentCookie,
			DefaultSource:   "catalogA",
			DefaultStrategy: "combined",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
