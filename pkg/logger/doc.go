// Package logger provides the structured zap logger used by the job
// instrumentation packages.
//
// Every other package in this module depends on a small Logger interface of
// its own (Info, Debug, Warn, Error, Fatal taking a message, an optional error
// and field maps); *Logger satisfies all of them.
//
// Basic Usage:
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "mailer-worker",
//		EnableTracing: true,
//	})
//
//	log.Info("middleware installed", nil, map[string]interface{}{
//		"propagation_style": "link",
//	})
//
//	// Inside a job: adds trace_id and span_id of the job span.
//	log.WarnWithContext(ctx, "retries exhausted", nil, map[string]interface{}{
//		"jid": jid,
//	})
//
// Configuration:
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=mailer      # "service" field on every entry
//	LOGGER_ENABLE_TRACING=true      # trace correlation in *WithContext
//
// FX Module Integration:
//
//	app := fx.New(
//		fx.Supply(logger.Config{Level: logger.Info}),
//		logger.FXModule,
//	)
package logger
