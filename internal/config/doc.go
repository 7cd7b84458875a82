// Package config provides configuration management for the weekly impedance
// report. It loads configuration from multiple sources, validates it, and
// derives the per-run week layout.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern IMPEDANCE_* for namespacing:
//
//	IMPEDANCE_CONFIG_FILE=/etc/impedance/config.yaml
//	IMPEDANCE_PATHS_INPUT_DIR=/lab/nanoz
//	IMPEDANCE_ANALYSIS_THRESHOLD=5
//	IMPEDANCE_MAIL_RECIPIENT=lab@example.org
//	IMPEDANCE_LOGGING_LEVEL=debug
//
// # Week Layout
//
// Every run belongs to the Monday to Friday week containing the run date:
//
//	week, _ := config.NewWeekLayout(cfg.Paths.OutputDir, time.Now())
//	// processedData/2026-10-19 to 2026-10-23/figures
//	// processedData/2026-10-19 to 2026-10-23/textFileData
//	// processedData/2026-10-19 to 2026-10-23.zip
package config
