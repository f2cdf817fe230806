package store

import "github.com/cuemby/vaultd/pkg/types"

// PragmaConfig is the set of SQLite pragmas applied to a vault's
// connection on open. Values are tuned per DeviceProfile to trade
// durability for throughput on constrained hardware.
type PragmaConfig struct {
	JournalMode string
	Synchronous int
	CacheSize   int
	MmapSize    int64
	PageSize    int
	ForeignKeys bool
	TempStore   int
	BusyTimeout int
	AutoVacuum  int
	KDFIter     int
}

// DefaultPragmaConfig matches the Standard device profile.
func DefaultPragmaConfig() PragmaConfig {
	return ForProfile(types.DeviceProfileStandard)
}

// ForProfile returns the pragma tuning for the given device profile.
// These values are carried over unchanged from the reference
// implementation's auto-detection logic so a vault keyed on one
// platform behaves identically when opened on another.
func ForProfile(profile types.DeviceProfile) PragmaConfig {
	switch profile {
	case types.DeviceProfileHighPerformance:
		return PragmaConfig{
			JournalMode: "WAL",
			Synchronous: 1, // NORMAL
			CacheSize:   -128000,
			MmapSize:    268435456,
			PageSize:    4096,
			ForeignKeys: true,
			TempStore:   2, // MEMORY
			BusyTimeout: 10000,
			AutoVacuum:  2, // INCREMENTAL
			KDFIter:     256000,
		}
	case types.DeviceProfileMobile:
		return PragmaConfig{
			JournalMode: "WAL",
			Synchronous: 1,
			CacheSize:   -16000,
			MmapSize:    0,
			PageSize:    4096,
			ForeignKeys: true,
			TempStore:   1, // FILE
			BusyTimeout: 3000,
			AutoVacuum:  2,
			KDFIter:     128000,
		}
	case types.DeviceProfileLowEnd:
		return PragmaConfig{
			JournalMode: "DELETE",
			Synchronous: 2, // FULL
			CacheSize:   -8000,
			MmapSize:    0,
			PageSize:    4096,
			ForeignKeys: true,
			TempStore:   1,
			BusyTimeout: 3000,
			AutoVacuum:  0, // NONE
			KDFIter:     64000,
		}
	default: // Standard
		return PragmaConfig{
			JournalMode: "WAL",
			Synchronous: 1,
			CacheSize:   -64000,
			MmapSize:    134217728,
			PageSize:    4096,
			ForeignKeys: true,
			TempStore:   2,
			BusyTimeout: 5000,
			AutoVacuum:  2,
			KDFIter:     256000,
		}
	}
}
