// Package config loads service configuration for streamkit applications.
//
// LoadConfig uses Viper to read a config.yml, godotenv to load a .env file,
// and then lets environment variables override nested keys. An environment
// variable such as STREAM_WRITABLE_HIGH_WATER_MARK is bound to every nested
// key it could name, so it reaches stream.writable.high_water_mark.
//
// # Usage
//
//	var cfg config.ServiceConfig
//	if err := config.LoadConfig("ingest", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	t, err := stream.NewFromConfig(ctx, cfg.Stream, transformer)
package config
