// Package config holds the tunable parameters of the gesture core and the
// application around it. Values are layered: defaults, then a JSON file,
// then the environment, then settings persisted by the user.
package config

import (
	"encoding/json"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is prepended to the upper-cased JSON key to form the
// environment variable name, e.g. MUDRA_PINCH_THRESHOLD.
const EnvPrefix = "MUDRA_"

const maxFileSize = 1 << 20

// Anchor filter names.
const (
	AnchorFilterNone   = "none"
	AnchorFilterKalman = "kalman"
)

// Config is the full set of recognised options.
type Config struct {
	// Classification
	PinchThreshold float64  `json:"pinch_threshold"`
	ThumbMargin    float64  `json:"thumb_margin"`
	HoldThreshold  Duration `json:"hold_threshold"`

	// Cursor mapping
	ScreenWidth     int     `json:"screen_width"`
	ScreenHeight    int     `json:"screen_height"`
	ScreenMargin    int     `json:"screen_margin"`
	ActiveZoneInset float64 `json:"active_zone_inset"`
	CursorSmoothing float64 `json:"cursor_smoothing"`
	MaxCursorSpeed  float64 `json:"max_cursor_speed"`

	// Discrete actions
	ClickCooldown  Duration `json:"click_cooldown"`
	ScrollCooldown Duration `json:"scroll_cooldown"`
	VoiceCooldown  Duration `json:"voice_cooldown"`
	ScrollAmount   int      `json:"scroll_amount"`

	// Volume
	VolumeSensitivity float64 `json:"volume_sensitivity"`
	InitialVolume     int     `json:"initial_volume"`
	MaxVolumeSteps    int     `json:"max_volume_steps"`

	// Pipeline
	AnchorFilter    string   `json:"anchor_filter"`
	HandLostTimeout Duration `json:"hand_lost_timeout"`

	// Capture and detection
	CameraID               int     `json:"camera_id"`
	MotionThreshold        float64 `json:"motion_threshold"`
	MaxHands               int     `json:"max_hands"`
	MinDetectionConfidence float64 `json:"min_detection_confidence"`
	MinTrackingConfidence  float64 `json:"min_tracking_confidence"`

	// Application
	DataDir       string `json:"data_dir"`
	PluginDir     string `json:"plugin_dir"`
	ListenAddr    string `json:"listen_addr"`
	RedisAddr     string `json:"redis_addr"`
	SpeechEnabled bool   `json:"speech_enabled"`
	SpeechCommand string `json:"speech_command"`
}

// Default returns the reference configuration.
func Default() Config {
	dataDir := ".mudra"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".mudra")
	}

	return Config{
		PinchThreshold: 0.22,
		ThumbMargin:    15,
		HoldThreshold:  Duration(50 * time.Millisecond),

		ScreenWidth:     1920,
		ScreenHeight:    1080,
		ScreenMargin:    30,
		ActiveZoneInset: 0.2,
		CursorSmoothing: 0.3,
		MaxCursorSpeed:  200,

		ClickCooldown:  Duration(500 * time.Millisecond),
		ScrollCooldown: Duration(200 * time.Millisecond),
		VoiceCooldown:  Duration(2 * time.Second),
		ScrollAmount:   3,

		VolumeSensitivity: 3,
		InitialVolume:     50,
		MaxVolumeSteps:    5,

		AnchorFilter:    AnchorFilterNone,
		HandLostTimeout: Duration(500 * time.Millisecond),

		CameraID:               0,
		MotionThreshold:        1.0,
		MaxHands:               1,
		MinDetectionConfidence: 0.4,
		MinTrackingConfidence:  0.3,

		DataDir:       dataDir,
		PluginDir:     filepath.Join(dataDir, "plugins"),
		ListenAddr:    "127.0.0.1:8080",
		SpeechEnabled: true,
		SpeechCommand: "say",
	}
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks every option and wraps ErrInvalid with the first problem found.
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrInvalid, format, args...)
	}

	floats := []struct {
		key string
		v   float64
	}{
		{"pinch_threshold", c.PinchThreshold},
		{"thumb_margin", c.ThumbMargin},
		{"active_zone_inset", c.ActiveZoneInset},
		{"cursor_smoothing", c.CursorSmoothing},
		{"max_cursor_speed", c.MaxCursorSpeed},
		{"volume_sensitivity", c.VolumeSensitivity},
		{"motion_threshold", c.MotionThreshold},
		{"min_detection_confidence", c.MinDetectionConfidence},
		{"min_tracking_confidence", c.MinTrackingConfidence},
	}
	for _, f := range floats {
		if !Finite(f.v) {
			return invalid("%s must be a finite number, got %v", f.key, f.v)
		}
	}

	switch {
	case c.PinchThreshold < 0:
		return invalid("pinch_threshold must not be negative, got %v", c.PinchThreshold)
	case c.ThumbMargin < 0:
		return invalid("thumb_margin must not be negative, got %v", c.ThumbMargin)
	case c.HoldThreshold < 0:
		return invalid("hold_threshold must not be negative, got %s", c.HoldThreshold)
	case c.ScreenMargin < 0:
		return invalid("screen_margin must not be negative, got %d", c.ScreenMargin)
	case c.ScreenWidth <= 2*c.ScreenMargin || c.ScreenHeight <= 2*c.ScreenMargin:
		return invalid("screen %dx%d too small for margin %d", c.ScreenWidth, c.ScreenHeight, c.ScreenMargin)
	case c.ActiveZoneInset < 0 || c.ActiveZoneInset >= 0.5:
		return invalid("active_zone_inset must be in [0, 0.5), got %v", c.ActiveZoneInset)
	case c.CursorSmoothing < 0 || c.CursorSmoothing >= 1:
		return invalid("cursor_smoothing must be in [0, 1), got %v", c.CursorSmoothing)
	case c.MaxCursorSpeed < 0:
		return invalid("max_cursor_speed must not be negative, got %v", c.MaxCursorSpeed)
	case c.ClickCooldown < 0 || c.ScrollCooldown < 0 || c.VoiceCooldown < 0:
		return invalid("cooldowns must not be negative")
	case c.ScrollAmount < 1:
		return invalid("scroll_amount must be positive, got %d", c.ScrollAmount)
	case c.VolumeSensitivity <= 0:
		return invalid("volume_sensitivity must be positive, got %v", c.VolumeSensitivity)
	case c.InitialVolume < 0 || c.InitialVolume > 100:
		return invalid("initial_volume must be in [0, 100], got %d", c.InitialVolume)
	case c.MaxVolumeSteps < 1:
		return invalid("max_volume_steps must be positive, got %d", c.MaxVolumeSteps)
	case c.AnchorFilter != AnchorFilterNone && c.AnchorFilter != AnchorFilterKalman:
		return invalid("unknown anchor_filter %q", c.AnchorFilter)
	case c.HandLostTimeout < 0:
		return invalid("hand_lost_timeout must not be negative, got %s", c.HandLostTimeout)
	case c.CameraID < 0:
		return invalid("camera_id must not be negative, got %d", c.CameraID)
	case c.MotionThreshold < 0:
		return invalid("motion_threshold must not be negative, got %v", c.MotionThreshold)
	case c.MaxHands < 1:
		return invalid("max_hands must be positive, got %d", c.MaxHands)
	case c.MinDetectionConfidence < 0 || c.MinDetectionConfidence > 1:
		return invalid("min_detection_confidence must be in [0, 1], got %v", c.MinDetectionConfidence)
	case c.MinTrackingConfidence < 0 || c.MinTrackingConfidence > 1:
		return invalid("min_tracking_confidence must be in [0, 1], got %v", c.MinTrackingConfidence)
	case c.DataDir == "":
		return invalid("data_dir must be set")
	}
	return nil
}

// Load reads a JSON file over the defaults. Keys missing from the file keep
// their default values. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return cfg, errors.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return cfg, errors.Wrap(err, "stat config file")
	}
	if info.Size() > maxFileSize {
		return cfg, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv loads the given dotenv files (missing files are skipped) and then
// overrides every option whose MUDRA_ variable is set.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "load %s", f)
		}
	}

	for _, key := range Keys() {
		v, ok := os.LookupEnv(EnvName(key))
		if !ok {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return errors.Wrapf(err, "env %s", EnvName(key))
		}
	}
	return c.Validate()
}

// ApplySettings applies key/value overrides, typically rows persisted in the
// store. The receiver is left untouched when any value fails to apply.
func (c *Config) ApplySettings(settings map[string]string) error {
	next := *c
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := next.Set(k, settings[k]); err != nil {
			return err
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// EnvName returns the environment variable for a JSON key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// Keys lists every settable option by JSON key, in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, jsonKey(t.Field(i)))
	}
	return keys
}

// Set parses value into the option named by its JSON key.
func (c *Config) Set(key, value string) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonKey(t.Field(i)) != key {
			continue
		}
		if err := setField(v.Field(i), strings.TrimSpace(value)); err != nil {
			return errors.Wrapf(ErrInvalid, "%s: %v", key, err)
		}
		return nil
	}
	return errors.Wrapf(ErrInvalid, "unknown setting %q", key)
}

// Get returns the option named by key formatted as Set accepts it.
func (c Config) Get(key string) (string, bool) {
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonKey(t.Field(i)) == key {
			return formatField(v.Field(i)), true
		}
	}
	return "", false
}

func jsonKey(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

var durationType = reflect.TypeOf(Duration(0))

func setField(f reflect.Value, s string) error {
	if f.Type() == durationType {
		d, err := ParseDuration(s)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case reflect.Float64:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f.SetFloat(x)
	default:
		return errors.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

func formatField(f reflect.Value) string {
	if f.Type() == durationType {
		return Duration(f.Int()).String()
	}
	switch f.Kind() {
	case reflect.String:
		return f.String()
	case reflect.Bool:
		return strconv.FormatBool(f.Bool())
	case reflect.Int:
		return strconv.FormatInt(f.Int(), 10)
	case reflect.Float64:
		return strconv.FormatFloat(f.Float(), 'g', -1, 64)
	}
	return ""
}
