// Package resolver turns a search query or URL into track metadata and
// retrieves the audio behind a canonical URL as a loudness-normalized local
// file. yt-dlp does the heavy lifting; YouTube URLs fall back to a native
// client when yt-dlp cannot answer a metadata lookup.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/util"
	youtube "github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

var (
	ErrResolution      = errors.New("could not resolve query")
	ErrNoResults       = errors.New("no results")
	ErrMissingArtifact = errors.New("normalized file was not produced")
	ErrStaleArtifact   = errors.New("normalized file is older than the retrieval")
)

type Options struct {
	DownloadPath string // raw download, overwritten on each retrieval
	PlayablePath string // normalized output, overwritten on each retrieval
	FFmpegPath   string
	HTTPTimeout  time.Duration
}

type Resolver struct {
	opts Options
	yt   *youtube.Client
	log  zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Resolver {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 15 * time.Second
	}
	return &Resolver{
		opts: opts,
		yt: &youtube.Client{
			HTTPClient: &http.Client{Timeout: opts.HTTPTimeout},
		},
		log: log,
	}
}

// Lookup resolves query to metadata without downloading anything.
func (r *Resolver) Lookup(ctx context.Context, query string) (queue.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return queue.Track{}, fmt.Errorf("%w: empty query", ErrResolution)
	}

	track, err := r.lookupYtdlp(ctx, query)
	if err == nil {
		return track, nil
	}
	r.log.Debug().Err(err).Str("query", query).Msg("yt-dlp lookup failed")

	if _, idErr := extractYouTubeID(query); idErr == nil {
		track, ytErr := r.lookupYouTube(ctx, query)
		if ytErr == nil {
			return track, nil
		}
		r.log.Debug().Err(ytErr).Str("query", query).Msg("youtube client lookup failed")
	}

	return queue.Track{}, fmt.Errorf("%w: %w", ErrResolution, err)
}

func (r *Resolver) lookupYtdlp(ctx context.Context, query string) (queue.Track, error) {
	res, err := ytdlp.New().
		DefaultSearch("auto").
		Format("bestaudio").
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		IgnoreConfig().
		NoWarnings().
		Run(ctx, query)
	if err != nil {
		return queue.Track{}, fmt.Errorf("yt-dlp error: %w", err)
	}
	return parseInfo([]byte(res.Stdout))
}

func (r *Resolver) lookupYouTube(ctx context.Context, url string) (queue.Track, error) {
	video, err := r.yt.GetVideoContext(ctx, url)
	if err != nil {
		return queue.Track{}, err
	}

	track := queue.Track{
		Title:    video.Title,
		URL:      "https://www.youtube.com/watch?v=" + video.ID,
		Duration: video.Duration,
	}
	// Thumbnails are ordered from smallest to largest.
	if n := len(video.Thumbnails); n > 0 {
		track.Thumbnail = video.Thumbnails[n-1].URL
	}
	return track, nil
}

// Retrieve downloads url to the raw slot, normalizes it into the playable
// slot and returns the playable path. The playable file must exist and be
// newer than the start of this call, which rules out a leftover from an
// earlier failed run.
func (r *Resolver) Retrieve(ctx context.Context, url string) (string, error) {
	start := time.Now()
	log := r.log.With().Str("url", url).Logger()

	log.Debug().Msg("downloading")
	_, err := ytdlp.New().
		Format("bestaudio").
		FormatSort("quality,codec,br").
		Output(r.opts.DownloadPath).
		ForceOverwrites().
		NoPart().
		NoPlaylist().
		IgnoreConfig().
		Quiet().
		NoWarnings().
		Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	log.Debug().Msg("normalizing")
	if err := r.normalize(ctx, r.opts.DownloadPath, r.opts.PlayablePath); err != nil {
		return "", fmt.Errorf("normalization failed: %w", err)
	}

	if err := checkArtifact(r.opts.PlayablePath, start); err != nil {
		return "", err
	}
	log.Info().Dur("took", time.Since(start)).Msg("audio ready")
	return r.opts.PlayablePath, nil
}

func checkArtifact(path string, since time.Time) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrMissingArtifact
	}
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", path, err)
	}
	if !info.ModTime().After(since) {
		return ErrStaleArtifact
	}
	return nil
}

type ytdlpInfo struct {
	Title       string      `json:"title"`
	WebpageURL  string      `json:"webpage_url"`
	OriginalURL string      `json:"original_url"`
	Thumbnail   string      `json:"thumbnail"`
	Duration    *float64    `json:"duration"`
	Entries     []ytdlpInfo `json:"entries"`
	Type        string      `json:"_type"`
}

// parseInfo reads yt-dlp's single-JSON output. Search results and playlists
// resolve to their first entry.
func parseInfo(data []byte) (queue.Track, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return queue.Track{}, fmt.Errorf("json unmarshal error: %w", err)
	}

	if info.Type == "playlist" || info.Entries != nil {
		if len(info.Entries) == 0 {
			return queue.Track{}, ErrNoResults
		}
		info = info.Entries[0]
	}

	link := info.WebpageURL
	if link == "" {
		link = info.OriginalURL
	}
	if link == "" {
		return queue.Track{}, errors.New("yt-dlp returned no page URL")
	}

	track := queue.Track{
		Title:     info.Title,
		URL:       link,
		Thumbnail: info.Thumbnail,
	}
	if track.Title == "" {
		track.Title = link
	}
	if info.Duration != nil {
		track.Duration = util.Seconds(*info.Duration)
	}
	return track, nil
}

func extractYouTubeID(url string) (string, error) {
	switch {
	case strings.Contains(url, "youtu.be/"):
		_, rest, _ := strings.Cut(url, "youtu.be/")
		id, _, _ := strings.Cut(rest, "?")
		if id == "" {
			return "", errors.New("invalid YouTube URL format")
		}
		return id, nil

	case strings.Contains(url, "youtube.com/watch?"):
		_, rest, ok := strings.Cut(url, "v=")
		if !ok {
			return "", errors.New("invalid YouTube URL format")
		}
		id, _, _ := strings.Cut(rest, "&")
		if id == "" {
			return "", errors.New("invalid YouTube URL format")
		}
		return id, nil

	default:
		return "", errors.New("unsupported URL format")
	}
}
