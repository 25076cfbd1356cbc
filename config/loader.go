package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file lookups done while resolving config files.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (RealFileSystem) UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// LoaderConfig holds the loader's dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	// ConfigFile must exist when set.
	ConfigFile string
	EnvFile    string
	// EnvPrefix selects the environment variables merged into the config.
	// Defaults to the upper-cased name plus "_", e.g. TAPIOCA_.
	EnvPrefix string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// ResolvedFiles contains the config and env file paths in use.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver finds config and env files for a named application.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns explicit paths when given and searches otherwise.
// An empty path means nothing was found.
func (r *Resolver) ResolveFiles(name string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(r.configCandidates(name))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first([]string{".env." + name, ".env"})
	}
	return files
}

func (r *Resolver) configCandidates(name string) []string {
	candidates := []string{
		name + ".yml",
		name + ".yaml",
		filepath.Join("config", name+".yml"),
		filepath.Join("config", "config.yml"),
		"config.yml",
	}
	if dir, err := r.FileSystem.UserConfigDir(); err == nil && dir != "" {
		candidates = append(candidates,
			filepath.Join(dir, name, "config.yml"),
			filepath.Join(dir, name, "config.yaml"),
		)
	}
	return candidates
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig loads YAML, then the .env file, then prefixed environment
// variables into cfg, which must be a pointer to a struct with mapstructure
// tags. Later sources win.
func LoadConfig(name string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
	}
	if lc.ConfigFile != "" && !lc.FileSystem.Exists(lc.ConfigFile) {
		return fmt.Errorf("config file %s not found", lc.ConfigFile)
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(name, lc)
	v := viper.New()

	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix, os.Environ(), configKeys(cfg))

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", name, err)
	}
	return nil
}

// bindPrefixedEnv sets every PREFIX_* variable under the config key it
// names. Keys come from the target struct, so TAPIOCA_HTTP_BASE_URL reaches
// http.base_url and TAPIOCA_CREDENTIALS_API_KEY lands in the credentials map
// as api_key.
func bindPrefixedEnv(v *viper.Viper, prefix string, environ []string, keys keySet) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || name == prefix {
			continue
		}
		if key, ok := keys.match(strings.ToLower(strings.TrimPrefix(name, prefix))); ok {
			v.Set(key, value)
		}
	}
}

// keySet lists the dotted config keys a struct decodes from.
type keySet struct {
	leaves map[string]string // flattened (underscored) form -> dotted key
	maps   []string          // dotted keys of map-typed fields
}

func (k keySet) match(flat string) (string, bool) {
	if key, ok := k.leaves[flat]; ok {
		return key, true
	}
	for _, m := range k.maps {
		p := strings.ReplaceAll(m, ".", "_") + "_"
		if strings.HasPrefix(flat, p) && len(flat) > len(p) {
			return m + "." + strings.TrimPrefix(flat, p), true
		}
	}
	return "", false
}

func configKeys(cfg any) keySet {
	ks := keySet{leaves: make(map[string]string)}
	collectKeys(reflect.TypeOf(cfg), "", &ks)
	return ks
}

var timeType = reflect.TypeOf(time.Time{})

func collectKeys(t reflect.Type, prefix string, ks *keySet) {
	if t == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t.Kind() == reflect.Map && prefix != "":
		ks.maps = append(ks.maps, prefix)
		return
	case t.Kind() != reflect.Struct || t == timeType:
		if prefix != "" {
			ks.leaves[strings.ReplaceAll(prefix, ".", "_")] = prefix
		}
		return
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" || f.Type.Kind() == reflect.Func {
			continue
		}
		if strings.Contains(opts, "squash") || (f.Anonymous && name == "") {
			collectKeys(f.Type, prefix, ks)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		collectKeys(f.Type, name, ks)
	}
}
