// Package config loads and validates pool configuration.
//
// Configuration lives in YAML files. Values may reference environment
// variables with ${VAR_NAME} or ${VAR_NAME:-fallback}:
//
//	name: codecs
//	size: ${POOL_SIZE:-8}
//	policy: dynamic
//	compression:
//	  algorithm: zstd
//	  level: better
//	metrics:
//	  enabled: true
//	  address: ":9090"
//	logging:
//	  level: debug
//	tracing:
//	  enabled: false
//
// LoadPoolConfig reads such a file on top of DefaultPoolConfig, so omitted
// fields keep their defaults, and validates the result:
//
//	cfg, err := config.LoadPoolConfig("pool.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	ccfg, _ := cfg.CompressorConfig()
package config
