package client

import "github.com/corvid-tools/ytgrab/internal/types"

// VideoInfo is the package-level metadata result.
type VideoInfo struct {
	ID              string
	Title           string
	Author          string
	Description     string
	DurationSec     int64
	ViewCount       int64
	ChannelID       string
	PublishDate     string
	UploadDate      string
	Category        string
	IsLive          bool
	Keywords        []string
	Formats         []FormatInfo
	DashManifestURL string
	HLSManifestURL  string
}

// FormatInfo is the normalized public format model. It is the shared
// format type between this package and the rest of the module; the
// reducer and manifest parsers both produce it.
type FormatInfo = types.FormatInfo
