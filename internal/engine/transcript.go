package engine

import (
	"log/slog"
	"os"
)

// TranscriptSource reports the modification time of a conversation
// transcript. ok is false when the path is empty or cannot be stat'ed.
type TranscriptSource interface {
	MtimeMs(path string) (ms int64, ok bool)
}

// FileTranscripts probes transcripts on the local filesystem.
type FileTranscripts struct {
	Logger *slog.Logger
}

// MtimeMs returns the file's mtime in Unix milliseconds.
func (f FileTranscripts) MtimeMs(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	info, err := os.Stat(path)
	if err != nil {
		if f.Logger != nil {
			f.Logger.Debug("transcript unreachable",
				"code", ErrCodeTranscriptUnreachable,
				"path", path,
				"error", err,
			)
		}
		return 0, false
	}
	return info.ModTime().UnixMilli(), true
}
