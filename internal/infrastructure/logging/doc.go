// Package logging builds the zap logger shared by the server.
//
// NewFromSettings takes the LOG_LEVEL and LOG_DEV settings. Production
// output is JSON on stdout without stack traces; development output is a
// colored console encoder at debug level. An unparseable level falls back
// to the preset for the chosen mode rather than failing startup.
//
// Components get a child logger through Named, so every line carries its
// origin ("ws", "workspace", "http", "trace", "page"):
//
//	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	defer logger.Sync()
//	hub := ws.NewHub(hubConfig).WithLogger(logger.Named("ws").Logger)
//
// NewNop discards everything and is what tests use.
package logging
