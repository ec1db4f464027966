// Package config loads runtime configuration for the delegsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (JSON, YAML or TOML, picked by extension) passed
//     with --config.
//  3. DELEGSYNC_* environment variables, e.g. DELEGSYNC_SPREADSHEET_ID.
//  4. Command-line flags registered with RegisterFlags.
//
// Keys are kebab-case everywhere; the environment form upper-cases them and
// replaces dashes with underscores:
//
//	{
//	  "database": "delegsync.db",
//	  "backend": "sheets",
//	  "spreadsheet-id": "1AbC...",
//	  "credentials-file": "service-account.json",
//	  "base-backoff": "1s"
//	}
//
// Durations accept Go duration strings ("500ms", "1s").
package config
