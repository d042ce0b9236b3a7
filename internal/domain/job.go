package domain

// ArchiveJobSpec is the input of a dump.
type ArchiveJobSpec struct {
	Source      string
	Destination string
	Overwrite   bool
	UseDrush    bool

	// Verify inspects the produced archive after a manual dump.
	Verify bool
}

// RestoreJobSpec is the input of a restore. DatabaseURL is mandatory, the
// credentials are never read from the archive itself.
type RestoreJobSpec struct {
	Archive     string
	Destination string
	Overwrite   bool
	UseDrush    bool
	DatabaseURL string
}

// ScheduledDump describes a recurring dump of one site.
type ScheduledDump struct {
	Name     string
	Source   string
	Schedule string
	UseDrush bool
}
