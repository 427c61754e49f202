package config

const (
	defaultImageFolder           = "~/.local/share/hrmq/images"
	defaultSourceSubdir          = "src"
	defaultDestinationSubdir     = "dst"
	defaultDataDir               = "~/.local/share/hrmq"
	defaultUploadDir             = "~/.local/share/hrmq/uploads"
	defaultExtensionCacheSeconds = 60
	defaultPriorityPolicy        = PriorityFairShare
	defaultPersistence           = PersistenceBestEffort
	defaultLockRetryMS           = 50
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Queue priority policies.
const (
	PriorityFairShare = "fair_share"
	PriorityFIFO      = "fifo"
)

// Job persistence policies.
const (
	PersistenceBestEffort    = "best_effort"
	PersistenceTransactional = "transactional"
)

// DestPlaceholder is substituted with the expansion folder in archive command templates.
const DestPlaceholder = "%DEST%"

func defaultImageExtensions() []string {
	return []string{
		"btf", "czi", "dv", "h5", "ics", "ims", "lif", "lof", "lsm", "nd2",
		"oif", "ome", "ome.tif", "ome.tiff", "pic", "r3d", "stk", "tf2",
		"tf8", "tif", "tiff", "zvi",
	}
}

func defaultArchives() map[string]string {
	return map[string]string{
		"zip":     "unzip -qq -o -d " + DestPlaceholder,
		"tar":     "tar -C " + DestPlaceholder + " -xf",
		"tar.gz":  "tar -C " + DestPlaceholder + " -xzf",
		"tgz":     "tar -C " + DestPlaceholder + " -xzf",
		"tar.bz2": "tar -C " + DestPlaceholder + " -xjf",
		"tbz2":    "tar -C " + DestPlaceholder + " -xjf",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImageFolder:       defaultImageFolder,
			SourceSubdir:      defaultSourceSubdir,
			DestinationSubdir: defaultDestinationSubdir,
			DataDir:           defaultDataDir,
			UploadDir:         defaultUploadDir,
		},
		Ingest: Ingest{
			ImageExtensions:       defaultImageExtensions(),
			Archives:              defaultArchives(),
			ExtensionCacheSeconds: defaultExtensionCacheSeconds,
		},
		Queue: Queue{
			PriorityPolicy: defaultPriorityPolicy,
			Persistence:    defaultPersistence,
			LockRetryMS:    defaultLockRetryMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
