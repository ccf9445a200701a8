package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedCodec = errors.New("unsupported IVF codec")

// fileTrack feeds a looping IVF video file into a local sample track.
// Container-level reading only; the frames pass to the engine as-is.
type fileTrack struct {
	path  string
	track *webrtc.TrackLocalStaticSample
}

func newFileTrack(path string) (*fileTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return nil, fmt.Errorf("read IVF header: %w", err)
	}
	mime, err := mimeForFourCC(header.FourCC)
	if err != nil {
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime}, "video", "camstream",
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "streamer.track").Str("file", path).Str("codec", mime).
		Uint16("width", header.Width).Uint16("height", header.Height).Msg("video file initialized")
	return &fileTrack{path: path, track: track}, nil
}

func mimeForFourCC(fourCC string) (string, error) {
	switch fourCC {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, fourCC)
	}
}

func (ft *fileTrack) Track() webrtc.TrackLocal { return ft.track }

// Feed writes samples at the file's timebase until ctx is canceled,
// restarting the file whenever it ends.
func (ft *fileTrack) Feed(ctx context.Context) {
	for {
		if err := ft.playOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("module", "streamer.track").Msg("playback error")
			return
		}
		if ctx.Err() != nil {
			return
		}
		log.Info().Str("module", "streamer.track").Msg("video ended, restarting")
	}
}

func (ft *fileTrack) playOnce(ctx context.Context) error {
	f, err := os.Open(ft.path)
	if err != nil {
		return err
	}
	defer f.Close()

	ivf, header, err := ivfreader.NewWith(f)
	if err != nil {
		return err
	}

	frameDuration := time.Millisecond *
		time.Duration(float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator)*1000)
	if frameDuration <= 0 {
		frameDuration = time.Second / 30
	}
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		frame, _, err := ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ft.track.WriteSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
