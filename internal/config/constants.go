package config

import (
	"time"

	"cpsroster/pkg/contracts"
)

// Application constants
const (
	AppName    = "CPS Roster"
	AppVersion = contracts.Version

	// EnvPrefix is the prefix for every environment variable, e.g. ROSTER_PROCESSING_WORKERS
	EnvPrefix = "ROSTER"

	// Source defaults
	DefaultBaseURL    = "https://cps.edu"
	DefaultListingURL = "https://cps.edu/About_CPS/Financial_information/Pages/EmployeePositionFiles.aspx"
	DefaultLinkFilter = "Employee"

	// Network
	DefaultHTTPTimeout         = 60 * time.Second
	DefaultDownloadConcurrency = 2

	// Processing
	DefaultWorkers = 4
	DateLayout     = "2006-01-02"

	// Directory names under the data directory
	RawDirName     = "raw"
	CSVDirName     = "csv"
	OutputDirName  = "output"
	DefaultLogsDir = "logs"

	// Artifact names
	CacheFilePrefix    = "EmployeePositionRoster_"
	SnapshotFileName   = "EmployeePositionRoster_Joined_Cleaned.gob.br"
	JoinedCSVFileName  = "EmployeePositionRoster_Joined_Cleaned.csv"
	ReducedCSVFileName = "EmployeePositionRoster_Reduced.csv"
)

// DefaultCutoff is the earliest publication date whose tables can be extracted
var DefaultCutoff = time.Date(2010, time.May, 2, 0, 0, 0, 0, time.UTC)
