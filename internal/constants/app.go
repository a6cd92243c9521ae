package constants

import (
	"time"
)

// Progress reporting
const (
	// ProgressChunkSize - bytes read between two progress notifications (20 KiB)
	ProgressChunkSize = 20 * 1024

	// CopyBufferSize - pooled buffer used for file copies and transfer bodies (32 KiB)
	CopyBufferSize = 32 * 1024

	// ProgressUpdateInterval - minimum interval between terminal bar redraws
	ProgressUpdateInterval = 250 * time.Millisecond
)

// Sharing service response codes
const (
	// StatusUploadOK and StatusUploadCreated are the only accepted upload answers
	StatusUploadOK      = 200
	StatusUploadCreated = 201
)

// Project storage layout
const (
	// ProjectCodeFile - serialized project model inside the project directory
	ProjectCodeFile = "code.json"

	// ImageDirectoryName - per-scene directory holding look images
	ImageDirectoryName = "images"

	// DefaultImageExtension - extension used when an import has no usable file name
	DefaultImageExtension = ".png"

	// TmpImageFileName - name the paint tool and camera use for their cache file
	TmpImageFileName = "catroid_tmp_image"

	// MediaLibraryCacheDirName - cache directory for looks fetched from the media library
	MediaLibraryCacheDirName = "media_library_cache"

	// PaintCacheFileName and CameraCacheFileName are the fixed import cache targets
	PaintCacheFileName  = TmpImageFileName + DefaultImageExtension
	CameraCacheFileName = TmpImageFileName + ".jpg"
)

// Default names for new model items
const (
	DefaultSceneName      = "Scene"
	DefaultSpriteName     = "Sprite"
	BackgroundSpriteName  = "Background"
	DefaultProjectName    = "My project"
	DefaultServerURL      = "https://share.catrob.at"
	DefaultUploadPath     = "/api/upload/upload.json"
	DefaultDownloadPath   = "/api/download/"
	DefaultCheckTokenPath = "/api/checkToken/check.json"
	DefaultLibraryPath    = "/library/looks/"
	CatrobatExtension     = ".catrobat"
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - extra space required on top of Content-Length
	DiskSpaceBufferPercent = 0.15
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for event channels
	EventBusMaxBuffer = 5000
)

// Transfer runner
const (
	DefaultWorkers = 2
	MinWorkers     = 1
	MaxWorkers     = 8
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPProxyWarmupTimeout - timeout for the proxy warmup request
	HTTPProxyWarmupTimeout = 15 * time.Second
)

// Retry configuration (only used when max_retries > 0)
const (
	RetryInitialDelay = 200 * time.Millisecond
	RetryMaxDelay     = 15 * time.Second
)
