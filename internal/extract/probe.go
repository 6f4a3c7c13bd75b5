package extract

import (
	"fmt"
	"strconv"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"

	"github.com/kettleby/slate/internal/media"
)

func (s *Set) probeFile(path string) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{
		FfmpegBinPath:  s.config.FfmpegBinPath,
		FfprobeBinPath: s.config.FfprobeBinPath,
	}

	metadata, err := ffmpeg.New(&cfg).Input(path).GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}

	return metadata, nil
}

// Video extracts duration, codec and frame dimensions using ffprobe.
func (s *Set) Video(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindVideo)

	metadata, err := s.probeFile(localPath)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	if duration, err := strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64); err == nil {
		record.Duration = &duration
	}

	for _, stream := range metadata.GetStreams() {
		if stream.GetCodecType() != "video" {
			continue
		}

		width, height := stream.GetWidth(), stream.GetHeight()
		codec := stream.GetCodecName()
		record.ResolutionX = &width
		record.ResolutionY = &height
		record.Codec = &codec
		break
	}

	return record
}

// Audio extracts duration and codec using ffprobe.
func (s *Set) Audio(localPath string) *media.Record {
	record := media.NewRecord(localPath, media.KindAudio)

	metadata, err := s.probeFile(localPath)
	if err != nil {
		record.Error = err.Error()
		return record
	}

	if duration, err := strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64); err == nil {
		record.Duration = &duration
	}

	for _, stream := range metadata.GetStreams() {
		if stream.GetCodecType() != "audio" {
			continue
		}

		codec := stream.GetCodecName()
		record.Codec = &codec
		break
	}

	return record
}
