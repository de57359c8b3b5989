package formats

import (
	"sort"
)

// SortByBest orders stream descriptors by height, then total bitrate, then
// fps, descending — best quality first.
func SortByBest(streams []StreamDescriptor) {
	sort.Slice(streams, func(i, j int) bool {
		if streams[i].Height != streams[j].Height {
			return streams[i].Height > streams[j].Height
		}
		if streams[i].TotalBitrate != streams[j].TotalBitrate {
			return streams[i].TotalBitrate > streams[j].TotalBitrate
		}
		return streams[i].FPS > streams[j].FPS
	})
}
