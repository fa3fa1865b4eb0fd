package common

import "time"

// Job is one user-initiated download of one media playlist. It is the unit
// the metadata store persists and the engine/supervisor mutate.
type Job struct {
	ID          string `json:"id"`
	SourceURL   string `json:"source_url"`
	PlaylistURL string `json:"playlist_url"`
	Filename    string `json:"filename"`
	Status      Status `json:"status"`
	Threads     int    `json:"threads"`
	OutputDir   string `json:"output_dir"`

	// Segments is the ordered, absolute segment URL list. Immutable once set.
	Segments []string `json:"segments"`

	TotalSegments      int `json:"total_segments"`
	DownloadedSegments int `json:"downloaded_segments"`

	FileSize        int64 `json:"file_size"`
	DownloadedBytes int64 `json:"downloaded_bytes"`

	Progress float64 `json:"progress"`
	Speed    int64   `json:"speed"`
	ETA      int64   `json:"eta"`

	OutputFile   string  `json:"output_file,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is the singleton configuration record.
type Settings struct {
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads"`
	DefaultThreads         int    `json:"default_threads"`
	DefaultOutputPath      string `json:"default_output_path"`
	AutoStart              bool   `json:"auto_start"`
}

// DefaultSettings returns the engine's built-in settings defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxConcurrentDownloads: 3,
		DefaultThreads:         4,
		DefaultOutputPath:      "",
		AutoStart:              true,
	}
}
