package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/acorn-io/dns01-hook/pkg/model"
)

var (
	ErrMissingCredential = errors.New("missing API credential")
	ErrConfigDir         = errors.New("extra config directory is not usable")
)

// Config is the hook configuration. Values come from the config file, the
// CONFIG_D directory and the process environment, later sources winning.
type Config struct {
	Provider        string            `env:"PROVIDER" envDefault:"digitalocean"`
	APIToken        string            `env:"API_TOKEN"`
	APIURL          string            `env:"API_URL" envDefault:"https://api.digitalocean.com/v2"`
	ZonesFile       string            `env:"ZONES_FILE"`
	ChallengeSuffix string            `env:"CHALLENGE_SUFFIX"`
	Wait            time.Duration     `env:"WAIT" envDefault:"10s"`
	RecordTTL       int               `env:"RECORD_TTL" envDefault:"300"`
	PageSize        int               `env:"PAGE_SIZE" envDefault:"200"`
	HTTPTimeout     time.Duration     `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPInsecure    bool              `env:"HTTP_INSECURE"`
	HTTPHeaders     map[string]string `env:"HTTP_HEADERS" envSeparator:";" envKeyValSeparator:":"`
	CleanExactMatch bool              `env:"CLEAN_EXACT_MATCH"`
	ZoneGuessPSL    bool              `env:"ZONE_GUESS_PSL"`
	DeployCertHook  string            `env:"DEPLOY_CERT_HOOK"`
	ExitHook        string            `env:"EXIT_HOOK"`
	ConfigDir       string            `env:"CONFIG_D"`
	ServerTokenHash string            `env:"SERVER_TOKEN_HASH"`
	// Route53PrivateZones lets the route53 provider use private hosted zones.
	Route53PrivateZones bool `env:"AWS_HOSTED_ZONE_PRIVATE"`

	// Source is the config file that was read, if any.
	Source string
}

// Load reads the configuration using the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, env.ToMap(os.Environ()))
}

// LoadWithEnv reads the configuration with environ standing in for the
// process environment. An empty path triggers discovery.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	values := map[string]string{}

	if path == "" {
		path = Discover(environ)
	}
	if path != "" {
		file, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		logrus.Debugf("loaded config file %s", path)
		merge(values, file)
	}

	dir := environ["CONFIG_D"]
	if dir == "" {
		dir = values["CONFIG_D"]
	}
	if dir != "" {
		extra, err := readDir(dir)
		if err != nil {
			return nil, err
		}
		merge(values, extra)
	}

	merge(values, environ)

	cfg := &Config{Source: path}
	if err := env.ParseWithOptions(cfg, env.Options{
		Environment: values,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseSeconds,
		},
	}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// Discover returns the first config file that exists, or "" when there is none.
func Discover(environ map[string]string) string {
	var candidates []string
	candidates = append(candidates, "dns01-hook.conf")
	if xdg := environ["XDG_CONFIG_HOME"]; xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "dns01-hook", "config"))
	}
	if home := environ["HOME"]; home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "dns01-hook", "config"))
	}
	candidates = append(candidates, "/etc/dns01-hook/config")

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

func readDir(dir string) (map[string]string, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigDir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrConfigDir, dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.conf"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigDir, err)
	}
	sort.Strings(files)

	values := map[string]string{}
	for _, f := range files {
		v, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", f, err)
		}
		logrus.Debugf("loaded extra config file %s", f)
		merge(values, v)
	}
	return values, nil
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// parseSeconds accepts Go durations and bare integers, which mean seconds.
func parseSeconds(v string) (interface{}, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.RecordTTL < model.MinTTLSeconds {
		c.RecordTTL = model.MinTTLSeconds
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}

	if len(c.HTTPHeaders) > 0 {
		headers := make(map[string]string, len(c.HTTPHeaders))
		for k, v := range c.HTTPHeaders {
			if k = strings.TrimSpace(k); k != "" {
				headers[k] = strings.TrimSpace(v)
			}
		}
		c.HTTPHeaders = headers
	}
}
