package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	DBMaxConns         int32  // max size of the connection pool
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogConfig          string // path to log config file
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry (empty: stdout exporters)
	BaseURL            string // base URL of the timing service
	Endpoint           string // endpoint used for retrieval (getData2, legacy ones)
	ProtocolVersion    string // version parameter sent to getData2
	CacheTTL           string // duration a fetched lap list stays fresh
	ServerAddr         string // listen addr for the JSON API
	NatsURL            string // URL of the NATS server
	Archive            bool   // store fetched/imported laps in the database
	TLSCertFile        string // certificate for the API server (enables TLS)
	TLSKeyFile         string // key for TLSCertFile
)
