// Package config loads roster pipeline settings and lays out its directories.
//
// Settings come from ROSTER_* environment variables (envconfig) and an
// optional YAML file; environment values win over the file. The file is
// looked up in roster.yaml, configs/roster.yaml or the path in ROSTER_CONFIG.
//
// Example roster.yaml:
//
//	paths:
//	  data_dir: /var/lib/roster
//	processing:
//	  workers: 8
//	  normalize_names: true
//	export:
//	  sqlite_path: /var/lib/roster/output/roster.db
//
// Directory layout under the data directory:
//
//	raw/     downloaded source documents
//	csv/     per-file normalized cache, one CSV per publication date
//	output/  joined snapshot and exports
package config
