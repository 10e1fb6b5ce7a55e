package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "CHATWIDGET"
	ConfigName = "chatwidget"

	KeyConfig          = "config"
	KeyBaseURL         = "base-url"
	KeyTimeout         = "timeout"
	KeyRetries         = "retries"
	KeyFailurePolicy   = "failure-policy"
	KeyFallbackMessage = "fallback-message"
	KeyRender          = "render"
	KeyGlamourStyle    = "glamour-style"
	KeyVariant         = "variant"
	KeyTitle           = "title"
	KeyPlaceholder     = "placeholder"
	KeyOpenOnStart     = "open-on-start"
	KeyLogLevel        = "log-level"
	KeyLogFile         = "log-file"
)

// Settings is the resolved widget configuration.
type Settings struct {
	BaseURL         string        `mapstructure:"base-url" yaml:"base-url"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries         int           `mapstructure:"retries" yaml:"retries"`
	FailurePolicy   string        `mapstructure:"failure-policy" yaml:"failure-policy"`
	FallbackMessage string        `mapstructure:"fallback-message" yaml:"fallback-message"`
	Render          string        `mapstructure:"render" yaml:"render"`
	GlamourStyle    string        `mapstructure:"glamour-style" yaml:"glamour-style"`
	Variant         string        `mapstructure:"variant" yaml:"variant"`
	Title           string        `mapstructure:"title" yaml:"title"`
	Placeholder     string        `mapstructure:"placeholder" yaml:"placeholder"`
	OpenOnStart     bool          `mapstructure:"open-on-start" yaml:"open-on-start"`
	LogLevel        string        `mapstructure:"log-level" yaml:"log-level"`
	LogFile         string        `mapstructure:"log-file" yaml:"log-file"`
}

// AddFlags registers the widget flags on cmd. Flag defaults are left empty so
// that variant presets, the config file and the environment can fill them in.
func AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(KeyConfig, "", "Path to a chatwidget config file")
	f.String(KeyBaseURL, "", "Base URL of the chat backend")
	f.Duration(KeyTimeout, 0, "Timeout for one exchange and for each backend call (default 30s)")
	f.Int(KeyRetries, 0, "Retries for transport errors and 5xx answers")
	f.String(KeyFailurePolicy, "", "What to show after a failed exchange: fallback or silent")
	f.String(KeyFallbackMessage, "", "Assistant message shown by the fallback failure policy")
	f.String(KeyRender, "", "How assistant replies are rendered: plain, blocks or markdown")
	f.String(KeyGlamourStyle, "", "glamour style for the markdown renderer (auto, dark, light, notty)")
	f.String(KeyVariant, "", "Widget preset: "+strings.Join(VariantNames(), ", "))
	f.String(KeyTitle, "", "Title shown in the widget header")
	f.String(KeyPlaceholder, "", "Placeholder of the input line")
	f.Bool(KeyOpenOnStart, false, "Open the panel when the widget starts")
	f.String(KeyLogLevel, "", "Log level (trace, debug, info, warn, error)")
	f.String(KeyLogFile, "", "Write logs to this file")
}

// NewViper returns a viper instance bound to cmd's flags and the environment.
func NewViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if cmd != nil {
		if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
			return nil, errors.Wrap(err, "failed to bind persistent flags")
		}
		// after parsing, Flags() also holds the persistent flags of parents
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return nil, errors.Wrap(err, "failed to bind flags")
		}
	}
	return v, nil
}

// Load resolves Settings from, lowest first: the variant preset, the config
// file, the environment and explicit flags.
func Load(v *viper.Viper) (*Settings, error) {
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	variantName := strings.TrimSpace(v.GetString(KeyVariant))
	if variantName == "" {
		variantName = DefaultVariant
	}
	variant, ok := LookupVariant(variantName)
	if !ok {
		return nil, errors.Errorf("unknown variant %q (expected one of %s)", variantName, strings.Join(VariantNames(), ", "))
	}
	applyDefaults(v, variant)

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	s.Variant = variant.Name
	s.BaseURL = chatapi.NormalizeBaseURL(s.BaseURL)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func applyDefaults(v *viper.Viper, variant Variant) {
	v.SetDefault(KeyTimeout, chatapi.DefaultTimeout)
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyFailurePolicy, string(variant.FailurePolicy))
	v.SetDefault(KeyFallbackMessage, exchange.DefaultFallbackMessage)
	v.SetDefault(KeyRender, string(variant.Render))
	v.SetDefault(KeyGlamourStyle, "auto")
	v.SetDefault(KeyTitle, variant.Title)
	v.SetDefault(KeyPlaceholder, variant.Placeholder)
	v.SetDefault(KeyOpenOnStart, variant.OpenOnStart)
	v.SetDefault(KeyLogLevel, "info")
}

func readConfigFile(v *viper.Viper) error {
	if path := strings.TrimSpace(v.GetString(KeyConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", path)
		}
		log.Debug().Str("config", path).Msg("loaded config file")
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	for _, dir := range configDirs() {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("loaded config file")
	return nil
}

func configDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigName))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+ConfigName))
	}
	return append(dirs, ".")
}

func (s *Settings) Validate() error {
	if s.BaseURL == "" {
		return errors.Errorf("%s is required (flag --%s or env %s_BASE_URL)", KeyBaseURL, KeyBaseURL, EnvPrefix)
	}
	if s.Timeout <= 0 {
		return errors.Errorf("%s must be positive, got %s", KeyTimeout, s.Timeout)
	}
	if s.Retries < 0 {
		return errors.Errorf("%s must not be negative, got %d", KeyRetries, s.Retries)
	}
	if _, err := exchange.ParseFailurePolicy(s.FailurePolicy); err != nil {
		return err
	}
	if _, err := render.ParseStrategy(s.Render); err != nil {
		return err
	}
	return nil
}

func (s *Settings) Policy() exchange.FailurePolicy {
	p, _ := exchange.ParseFailurePolicy(s.FailurePolicy)
	return p
}

func (s *Settings) RenderStrategy() render.Strategy {
	st, _ := render.ParseStrategy(s.Render)
	return st
}
