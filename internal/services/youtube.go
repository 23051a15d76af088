package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
	log           *zap.Logger
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

// VideoInfo is the metadata stored alongside an analysed video.
type VideoInfo struct {
	Title    string
	Duration time.Duration
}

var transcriptLanguages = []string{"ja", "en"}

func NewYouTubeService(log *zap.Logger) *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
		log:           log.Named("youtube"),
	}
}

// GetTranscript returns the caption lines of a video, Japanese first and
// English otherwise, one caption entry per line.
func (s *YouTubeService) GetTranscript(ctx context.Context, videoID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transcript, err := s.transcriptAPI.GetTranscript(videoID, transcriptLanguages)
	if err != nil {
		legacy, legacyErr := s.getTranscriptViaTimedText(ctx, videoID)
		if legacyErr == nil {
			return legacy, nil
		}
		s.log.Warn("no transcript",
			zap.String("video_id", videoID),
			zap.NamedError("api_error", err),
			zap.NamedError("timedtext_error", legacyErr))
		return nil, &NotFoundError{Message: fmt.Sprintf("no ja/en transcript available for video %s", videoID)}
	}

	lines := make([]string, 0, len(transcript.Entries))
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(html.UnescapeString(entry.Text))
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}

	if len(lines) == 0 {
		return nil, &NotFoundError{Message: "subtitle track is empty"}
	}
	return lines, nil
}

// VideoInfo looks up the title and length of a video.
func (s *YouTubeService) VideoInfo(ctx context.Context, videoID string) (VideoInfo, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return VideoInfo{}, &UnavailableError{Message: "failed to fetch video metadata", Err: err}
	}
	return VideoInfo{Title: video.Title, Duration: video.Duration}, nil
}

func (s *YouTubeService) getTranscriptViaTimedText(ctx context.Context, videoID string) ([]string, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s&hl=ja", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read YouTube page: %w", err)
	}

	pageHTML := string(body)
	s.log.Debug("timedtext fallback", zap.String("video_id", videoID), zap.Int("bytes", len(pageHTML)))

	captionURL, err := extractCaptionURL(pageHTML)
	if err != nil {
		return nil, err
	}

	captionReq, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, err
	}
	captionResp, err := s.httpClient.Do(captionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	transcript, err := parseCaptionsXML(captionBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}

	return transcript, nil
}

var (
	captionTracksRe   = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionRendererRe = regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	baseURLRe         = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	languageCodeRe    = regexp.MustCompile(`"languageCode"\s*:\s*"(.*?)"`)
)

// extractCaptionURL picks the caption track in transcriptLanguages order,
// falling back to the first track listed.
func extractCaptionURL(pageHTML string) (string, error) {
	matches := captionTracksRe.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		matches = captionRendererRe.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	byLang := map[string]string{}
	first := ""
	for _, track := range strings.Split(matches[1], "},{") {
		urlMatch := baseURLRe.FindStringSubmatch(track)
		if len(urlMatch) < 2 {
			continue
		}
		u := strings.ReplaceAll(urlMatch[1], `\u0026`, "&")
		u = strings.ReplaceAll(u, `\/`, "/")
		if first == "" {
			first = u
		}
		if lang := languageCodeRe.FindStringSubmatch(track); len(lang) > 1 {
			if _, seen := byLang[lang[1]]; !seen {
				byLang[lang[1]] = u
			}
		}
	}

	for _, lang := range transcriptLanguages {
		if u, ok := byLang[lang]; ok {
			return u, nil
		}
	}
	if first == "" {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}
	return first, nil
}

func parseCaptionsXML(data []byte) ([]string, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var parts []string
	for _, t := range tt.Texts {
		text := html.UnescapeString(t.Text)
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("captions XML empty")
	}

	return parts, nil
}

// DownloadAudio downloads the best available audio-only stream for a YouTube URL.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	const maxAudioBytes = 100 * 1024 * 1024 // 100MB safety cap
	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}
