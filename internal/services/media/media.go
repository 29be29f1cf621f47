// Package media implements the ONVIF media service: a fixed profile
// set, a singleflight-coalesced StreamUriCache, and snapshot URI
// generation.
package media

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
)

// Protocol enumerates the transport protocols GetStreamUri accepts.
type Protocol string

const (
	ProtocolRTSP          Protocol = "RTSP"
	ProtocolRTPUnicast    Protocol = "RTP-Unicast"
	ProtocolRTPMulticast  Protocol = "RTP-Multicast"
)

func validProtocol(p Protocol) bool {
	switch p {
	case ProtocolRTSP, ProtocolRTPUnicast, ProtocolRTPMulticast:
		return true
	default:
		return false
	}
}

// Profile identifies one of the daemon's two fixed streaming profiles,
// plus the tokens of its video/audio source+encoder, metadata, and PTZ
// configurations. All config tokens equal the profile token: this
// daemon runs exactly one source+encoder pair per profile, so there is
// no many-to-many config/profile binding to track.
type Profile struct {
	Token string
	Path  string // relative RTSP path, e.g. "/vs0"

	VideoSourceConfigToken  string
	VideoEncoderConfigToken string
	AudioSourceConfigToken  string
	AudioEncoderConfigToken string
	MetadataConfigToken     string
	PTZConfigToken          string
}

const (
	MainProfileToken = "MainProfile"
	SubProfileToken  = "SubProfile"
)

func defaultProfiles() map[string]Profile {
	mk := func(token, path string) Profile {
		return Profile{
			Token:                   token,
			Path:                    path,
			VideoSourceConfigToken:  token,
			VideoEncoderConfigToken: token,
			AudioSourceConfigToken:  token,
			AudioEncoderConfigToken: token,
			MetadataConfigToken:     token,
			PTZConfigToken:          token,
		}
	}
	return map[string]Profile{
		MainProfileToken: mk(MainProfileToken, "/vs0"),
		SubProfileToken:  mk(SubProfileToken, "/vs1"),
	}
}

// StreamUriEntry is a cached GetStreamUri result.
type StreamUriEntry struct {
	URI                    string
	Timeout                int
	InvalidAfterConnect    bool
	InvalidAfterReboot     bool
}

// Service is the media service's mutable state: its profile table,
// stream-uri/multicast caches, and per-profile source/encoder/metadata
// configurations, each guarded by its own mutex.
type Service struct {
	mu        sync.Mutex
	profiles  map[string]Profile
	cache     map[string]StreamUriEntry
	multicast map[string]bool

	videoSourceCfg  map[string]VideoSourceConfig
	videoEncoderCfg map[string]VideoEncoderConfig
	audioSourceCfg  map[string]AudioSourceConfig
	audioEncoderCfg map[string]AudioEncoderConfig
	metadataCfg     map[string]MetadataConfig

	videoSourceOpts  VideoSourceOptions
	videoEncoderOpts VideoEncoderOptions
	audioSourceOpts  AudioSourceOptions
	audioEncoderOpts AudioEncoderOptions

	group singleflight.Group

	platform platform.Platform
	host     string
	port     int
}

// New creates a Service with the fixed two-profile set, each seeded
// with a default video/audio source+encoder and metadata configuration.
func New(p platform.Platform, host string, port int) *Service {
	s := &Service{
		profiles:  defaultProfiles(),
		cache:     make(map[string]StreamUriEntry),
		multicast: make(map[string]bool),

		videoSourceCfg:  make(map[string]VideoSourceConfig),
		videoEncoderCfg: make(map[string]VideoEncoderConfig),
		audioSourceCfg:  make(map[string]AudioSourceConfig),
		audioEncoderCfg: make(map[string]AudioEncoderConfig),
		metadataCfg:     make(map[string]MetadataConfig),

		videoSourceOpts:  VideoSourceOptions{MinWidth: 320, MaxWidth: 1920, MinHeight: 240, MaxHeight: 1080},
		videoEncoderOpts: VideoEncoderOptions{MinFPS: 1, MaxFPS: 30, MinKbps: 256, MaxKbps: 8192},
		audioSourceOpts:  AudioSourceOptions{MinGain: -10, MaxGain: 10},
		audioEncoderOpts: AudioEncoderOptions{MinBitrate: 32, MaxBitrate: 320, MinSampleRate: 8000, MaxSampleRate: 48000},

		platform: p,
		host:     host,
		port:     port,
	}

	s.videoSourceCfg[MainProfileToken] = VideoSourceConfig{Width: 1920, Height: 1080}
	s.videoSourceCfg[SubProfileToken] = VideoSourceConfig{Width: 640, Height: 360}
	s.videoEncoderCfg[MainProfileToken] = VideoEncoderConfig{FPS: 25, Kbps: 4096}
	s.videoEncoderCfg[SubProfileToken] = VideoEncoderConfig{FPS: 15, Kbps: 512}
	s.audioSourceCfg[MainProfileToken] = AudioSourceConfig{Gain: 0}
	s.audioSourceCfg[SubProfileToken] = AudioSourceConfig{Gain: 0}
	s.audioEncoderCfg[MainProfileToken] = AudioEncoderConfig{Bitrate: 128, SampleRate: 16000}
	s.audioEncoderCfg[SubProfileToken] = AudioEncoderConfig{Bitrate: 64, SampleRate: 8000}
	s.metadataCfg[MainProfileToken] = MetadataConfig{PTZStatus: true, Analytics: false}
	s.metadataCfg[SubProfileToken] = MetadataConfig{PTZStatus: true, Analytics: false}

	return s
}

func cacheKey(token string, proto Protocol) string {
	return token + "|" + string(proto)
}

// GetStreamUri returns the (possibly cached) stream URI for profile
// token and protocol. Two successive calls with the same arguments
// return byte-identical strings, and the second executes no slower
// than the first, because it is served from cache without touching
// the platform.
func (s *Service) GetStreamUri(ctx context.Context, token string, proto Protocol) (StreamUriEntry, error) {
	s.mu.Lock()
	profile, ok := s.profiles[token]
	if !ok {
		s.mu.Unlock()
		return StreamUriEntry{}, onviferr.NotFound(fmt.Sprintf("unknown profile token %q", token))
	}
	if !validProtocol(proto) {
		s.mu.Unlock()
		return StreamUriEntry{}, onviferr.NotFound(fmt.Sprintf("unsupported protocol %q", proto))
	}

	key := cacheKey(token, proto)
	if entry, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return entry, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		uri := s.platform.RTSPURL(s.host, s.port, profile.Path)
		entry := StreamUriEntry{URI: uri, Timeout: 60}

		s.mu.Lock()
		s.cache[key] = entry
		s.mu.Unlock()

		return entry, nil
	})
	if err != nil {
		return StreamUriEntry{}, onviferr.Wrap(onviferr.KindPlatformFailure, "failed to build stream uri", err)
	}
	return v.(StreamUriEntry), nil
}

// GetSnapshotUri returns the HTTP JPEG snapshot URL for token.
func (s *Service) GetSnapshotUri(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	_, ok := s.profiles[token]
	s.mu.Unlock()
	if !ok {
		return "", onviferr.NotFound(fmt.Sprintf("unknown profile token %q", token))
	}
	return s.platform.SnapshotURL(s.host, s.port, token), nil
}

// StartMulticast marks token's multicast streaming flag on.
func (s *Service) StartMulticast(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown profile token %q", token))
	}
	s.multicast[token] = true
	return nil
}

// StopMulticast clears token's multicast flag. Stopping an already
// inactive profile is a success no-op, not an error.
func (s *Service) StopMulticast(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown profile token %q", token))
	}
	delete(s.multicast, token)
	return nil
}

// Profiles returns the fixed profile set for GetProfiles.
func (s *Service) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range []string{MainProfileToken, SubProfileToken} {
		out = append(out, s.profiles[p])
	}
	return out
}

// VideoSourceConfig is the subset of source parameters Set/GetVideoSourceConfiguration exchange.
type VideoSourceConfig struct {
	Width, Height int
}

// VideoSourceOptions advertises valid ranges for VideoSourceConfig fields.
type VideoSourceOptions struct {
	MinWidth, MaxWidth   int
	MinHeight, MaxHeight int
}

// ValidateVideoSourceConfig checks cfg against opts, returning a
// Sender-class domain error on any out-of-range field.
func ValidateVideoSourceConfig(cfg VideoSourceConfig, opts VideoSourceOptions) error {
	if cfg.Width < opts.MinWidth || cfg.Width > opts.MaxWidth {
		return onviferr.InvalidArgument(fmt.Sprintf("width %d out of range [%d,%d]", cfg.Width, opts.MinWidth, opts.MaxWidth))
	}
	if cfg.Height < opts.MinHeight || cfg.Height > opts.MaxHeight {
		return onviferr.InvalidArgument(fmt.Sprintf("height %d out of range [%d,%d]", cfg.Height, opts.MinHeight, opts.MaxHeight))
	}
	return nil
}

// VideoEncoderConfig is the subset of encoder parameters Set/GetVideoEncoderConfiguration exchange.
type VideoEncoderConfig struct {
	FPS  int
	Kbps int
}

// VideoEncoderOptions advertises valid ranges for VideoEncoderConfig fields.
type VideoEncoderOptions struct {
	MinFPS, MaxFPS   int
	MinKbps, MaxKbps int
}

// ValidateVideoEncoderConfig checks cfg against opts, returning a
// Sender-class domain error on any out-of-range field.
func ValidateVideoEncoderConfig(cfg VideoEncoderConfig, opts VideoEncoderOptions) error {
	if cfg.FPS < opts.MinFPS || cfg.FPS > opts.MaxFPS {
		return onviferr.InvalidArgument(fmt.Sprintf("fps %d out of range [%d,%d]", cfg.FPS, opts.MinFPS, opts.MaxFPS))
	}
	if cfg.Kbps < opts.MinKbps || cfg.Kbps > opts.MaxKbps {
		return onviferr.InvalidArgument(fmt.Sprintf("kbps %d out of range [%d,%d]", cfg.Kbps, opts.MinKbps, opts.MaxKbps))
	}
	return nil
}

// AudioSourceConfig is the subset of source parameters Set/GetAudioSourceConfiguration exchange.
type AudioSourceConfig struct {
	Gain float64
}

// AudioSourceOptions advertises the valid gain range for AudioSourceConfig.
type AudioSourceOptions struct {
	MinGain, MaxGain float64
}

// ValidateAudioSourceConfig checks cfg against opts, returning a
// Sender-class domain error on an out-of-range gain.
func ValidateAudioSourceConfig(cfg AudioSourceConfig, opts AudioSourceOptions) error {
	if cfg.Gain < opts.MinGain || cfg.Gain > opts.MaxGain {
		return onviferr.InvalidArgument(fmt.Sprintf("gain %.1f out of range [%.1f,%.1f]", cfg.Gain, opts.MinGain, opts.MaxGain))
	}
	return nil
}

// AudioEncoderConfig is the subset of encoder parameters Set/GetAudioEncoderConfiguration exchange.
type AudioEncoderConfig struct {
	Bitrate    int
	SampleRate int
}

// AudioEncoderOptions advertises valid ranges for AudioEncoderConfig fields.
type AudioEncoderOptions struct {
	MinBitrate, MaxBitrate       int
	MinSampleRate, MaxSampleRate int
}

// ValidateAudioEncoderConfig checks cfg against opts, returning a
// Sender-class domain error on any out-of-range field.
func ValidateAudioEncoderConfig(cfg AudioEncoderConfig, opts AudioEncoderOptions) error {
	if cfg.Bitrate < opts.MinBitrate || cfg.Bitrate > opts.MaxBitrate {
		return onviferr.InvalidArgument(fmt.Sprintf("bitrate %d out of range [%d,%d]", cfg.Bitrate, opts.MinBitrate, opts.MaxBitrate))
	}
	if cfg.SampleRate < opts.MinSampleRate || cfg.SampleRate > opts.MaxSampleRate {
		return onviferr.InvalidArgument(fmt.Sprintf("sample rate %d out of range [%d,%d]", cfg.SampleRate, opts.MinSampleRate, opts.MaxSampleRate))
	}
	return nil
}

// MetadataConfig is the subset of parameters Set/GetMetadataConfiguration
// exchange. Neither field has a numeric range to validate against.
type MetadataConfig struct {
	PTZStatus bool
	Analytics bool
}

// GetVideoSourceConfiguration returns the stored config for token.
func (s *Service) GetVideoSourceConfiguration(token string) (VideoSourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.videoSourceCfg[token]
	if !ok {
		return VideoSourceConfig{}, onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	return cfg, nil
}

// SetVideoSourceConfiguration validates cfg against the advertised
// range and, on success, replaces token's stored config.
func (s *Service) SetVideoSourceConfiguration(token string, cfg VideoSourceConfig) error {
	if err := ValidateVideoSourceConfig(cfg, s.videoSourceOpts); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videoSourceCfg[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	s.videoSourceCfg[token] = cfg
	return nil
}

func (s *Service) GetVideoEncoderConfiguration(token string) (VideoEncoderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.videoEncoderCfg[token]
	if !ok {
		return VideoEncoderConfig{}, onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	return cfg, nil
}

// SetVideoEncoderConfiguration validates cfg against the advertised
// range and, on success, replaces token's stored config.
func (s *Service) SetVideoEncoderConfiguration(token string, cfg VideoEncoderConfig) error {
	if err := ValidateVideoEncoderConfig(cfg, s.videoEncoderOpts); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videoEncoderCfg[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	s.videoEncoderCfg[token] = cfg
	return nil
}

func (s *Service) GetAudioSourceConfiguration(token string) (AudioSourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.audioSourceCfg[token]
	if !ok {
		return AudioSourceConfig{}, onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	return cfg, nil
}

// SetAudioSourceConfiguration validates cfg against the advertised
// range and, on success, replaces token's stored config.
func (s *Service) SetAudioSourceConfiguration(token string, cfg AudioSourceConfig) error {
	if err := ValidateAudioSourceConfig(cfg, s.audioSourceOpts); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audioSourceCfg[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	s.audioSourceCfg[token] = cfg
	return nil
}

func (s *Service) GetAudioEncoderConfiguration(token string) (AudioEncoderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.audioEncoderCfg[token]
	if !ok {
		return AudioEncoderConfig{}, onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	return cfg, nil
}

// SetAudioEncoderConfiguration validates cfg against the advertised
// range and, on success, replaces token's stored config.
func (s *Service) SetAudioEncoderConfiguration(token string, cfg AudioEncoderConfig) error {
	if err := ValidateAudioEncoderConfig(cfg, s.audioEncoderOpts); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audioEncoderCfg[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	s.audioEncoderCfg[token] = cfg
	return nil
}

func (s *Service) GetMetadataConfiguration(token string) (MetadataConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.metadataCfg[token]
	if !ok {
		return MetadataConfig{}, onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	return cfg, nil
}

// SetMetadataConfiguration replaces token's stored config. There is no
// range to validate; any NotFound on an unknown token is the only
// failure mode.
func (s *Service) SetMetadataConfiguration(token string, cfg MetadataConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metadataCfg[token]; !ok {
		return onviferr.NotFound(fmt.Sprintf("unknown configuration token %q", token))
	}
	s.metadataCfg[token] = cfg
	return nil
}
