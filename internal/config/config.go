package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/lalilo-dev/lalilo/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "lalilo.json"

	// DefaultEntry is the default source directory.
	DefaultEntry = "src"

	// DefaultDomain is the default development server host.
	DefaultDomain = "127.0.0.1"

	// DefaultPort is the first port the dev server tries.
	DefaultPort = 8000

	// DefaultDebounce is the per-file delay before an icon or stylesheet rebuild.
	DefaultDebounce = 357 * time.Millisecond

	// DefaultReloadDelay is the quiet period before a coalesced reload.
	DefaultReloadDelay = 300 * time.Millisecond

	// DefaultReloadMaxWait caps how long a reload can be deferred by a
	// continuous stream of changes.
	DefaultReloadMaxWait = 2 * time.Second

	// DefaultMaxBuffer is the largest renderer output accepted, in bytes.
	DefaultMaxBuffer = 1024 * 1024

	// DefaultBuildDest is the default export directory.
	DefaultBuildDest = "dist"
)

// Environments accepted by the template renderer.
var Environments = []string{"Development", "Testing", "Staging", "Production"}

// Config represents the complete lalilo.json configuration.
type Config struct {
	// Entry is the source directory, relative to the project root.
	Entry string `json:"entry,omitempty"`

	// Dirs holds the per-category subdirectories of Entry.
	Dirs DirsConfig `json:"dir"`

	Template TemplateConfig `json:"template"`
	Watch    WatchConfig    `json:"watch"`

	// Loaders are external programs run when a matching file changes.
	Loaders []LoaderConfig `json:"loaders,omitempty"`

	Server ServerConfig `json:"server"`

	// AutoOpenBrowser opens the dev server URL once it is listening.
	AutoOpenBrowser bool `json:"autoOpenBrowser,omitempty"`

	Icon   IconConfig   `json:"icon"`
	Style  StyleConfig  `json:"style"`
	Notify NotifyConfig `json:"notify"`
	Build  BuildConfig  `json:"build"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DirsConfig contains the source subdirectories, relative to Entry.
type DirsConfig struct {
	Icon string `json:"icon"`
	SCSS string `json:"scss"`
	CSS  string `json:"css"`
	Img  string `json:"img"`
	JS   string `json:"js"`

	// HTML is the compiled page tree. Empty means Entry itself.
	HTML string `json:"html"`
}

// TemplateConfig configures the out-of-process template renderer.
type TemplateConfig struct {
	Enabled bool `json:"enabled,omitempty"`

	// Command is the interpreter running Entry.
	Command string `json:"command,omitempty"`

	// Entry is the renderer script, relative to the project root.
	Entry string `json:"entry,omitempty"`

	// ConfigDir is passed to the renderer as --config.
	ConfigDir string `json:"configDir,omitempty"`

	// MaxBuffer bounds the renderer output in bytes.
	MaxBuffer int `json:"maxBuffer,omitempty"`

	Env     string `json:"env,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Ext is the template file extension.
	Ext string `json:"ext,omitempty"`
}

// WatchConfig controls which changes trigger rebuilds and reloads.
type WatchConfig struct {
	// Formats are the extensions that trigger a browser reload.
	Formats []string `json:"formats,omitempty"`

	// IgnoreDirs are subdirectories of Entry excluded from reloads.
	IgnoreDirs []string `json:"ignoreDirs,omitempty"`

	Debounce      Duration `json:"debounce,omitempty"`
	ReloadDelay   Duration `json:"reloadDelay,omitempty"`
	ReloadMaxWait Duration `json:"reloadMaxWait"`
}

// LoaderConfig describes an external program run on matching changes.
type LoaderConfig struct {
	Title string `json:"title"`

	// Ext filters the files the loader handles. Empty matches every file.
	Ext string `json:"ext,omitempty"`

	// Exec is the program path, relative to the project root.
	Exec string `json:"exec"`

	// Runner is an optional interpreter, e.g. "node".
	Runner string `json:"runner,omitempty"`
}

// ServerConfig contains development server settings.
type ServerConfig struct {
	Domain   string     `json:"domain,omitempty"`
	Port     PortConfig `json:"port"`
	UTF8Exts []string   `json:"utf8Exts,omitempty"`
	SSL      SSLConfig  `json:"ssl"`
}

// PortConfig is the inclusive port range scanned by the dev server.
type PortConfig struct {
	Min     int `json:"min,omitempty"`
	Max     int `json:"max,omitempty"`
	Default int `json:"default,omitempty"`
}

// SSLConfig enables HTTPS when both files are set.
type SSLConfig struct {
	Key  string `json:"key,omitempty"`
	Cert string `json:"cert,omitempty"`
}

// IconConfig controls the icon font stylesheet generator.
type IconConfig struct {
	// Stylesheet is the file name the icon font tool writes in each set.
	Stylesheet string `json:"stylesheet,omitempty"`

	// BaseImport is imported at the top of every generated stylesheet.
	BaseImport string `json:"baseImport,omitempty"`

	// FontBaseURL prefixes the webfont URLs in @font-face.
	FontBaseURL string `json:"fontBaseURL,omitempty"`

	// DefaultSet is the set whose classes keep the bare "icon-" prefix.
	DefaultSet string `json:"defaultSet,omitempty"`
}

// StyleConfig controls the stylesheet compiler.
type StyleConfig struct {
	// Compiler is the sass executable.
	Compiler string `json:"compiler,omitempty"`

	// Ext is the source extension.
	Ext string `json:"ext,omitempty"`
}

// NotifyConfig controls desktop notifications for failed builds.
type NotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Title   string `json:"title,omitempty"`
}

// BuildConfig contains export settings.
type BuildConfig struct {
	// Dest is the export directory, relative to the project root.
	Dest string `json:"dest,omitempty"`

	// Exts are the (lowercase) extensions copied to Dest.
	Exts []string `json:"exts,omitempty"`

	// IncludeFiles are exported regardless of extension, relative to Entry.
	IncludeFiles []string `json:"includeFiles,omitempty"`

	// IgnoreDirs are subdirectories of Entry never exported.
	IgnoreDirs []string `json:"ignoreDirs,omitempty"`

	// Concurrency bounds parallel file copies.
	Concurrency int `json:"concurrency,omitempty"`

	AutoOpenFolder bool `json:"autoOpenFolder,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Entry: DefaultEntry,
		Dirs: DirsConfig{
			Icon: "icon",
			SCSS: "scss",
			CSS:  "css",
			Img:  "img",
			JS:   "js",
		},
		Template: TemplateConfig{
			Command:   "php",
			ConfigDir: "cmd/config/php",
			MaxBuffer: DefaultMaxBuffer,
			Env:       "Development",
			Ext:       ".php",
		},
		Watch: WatchConfig{
			Formats:       []string{".php", ".html", ".css", ".js"},
			IgnoreDirs:    []string{"icon"},
			Debounce:      Duration(DefaultDebounce),
			ReloadDelay:   Duration(DefaultReloadDelay),
			ReloadMaxWait: Duration(DefaultReloadMaxWait),
		},
		Server: ServerConfig{
			Domain:   DefaultDomain,
			Port:     PortConfig{Min: 8000, Max: 8999, Default: DefaultPort},
			UTF8Exts: []string{".html", ".css", ".js", ".json", ".text"},
		},
		Icon: IconConfig{
			Stylesheet:  "style.css",
			BaseImport:  "Lalilo",
			FontBaseURL: "../icon/",
			DefaultSet:  "icomoon",
		},
		Style: StyleConfig{
			Compiler: "sass",
			Ext:      ".scss",
		},
		Notify: NotifyConfig{
			Enabled: true,
			Title:   "Lalilo",
		},
		Build: BuildConfig{
			Dest: DefaultBuildDest,
			Exts: []string{
				".html", ".php", ".css", ".js", ".json",
				".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
				".eot", ".woff", ".woff2", ".ttf",
			},
			IgnoreDirs:  []string{"icon", "scss"},
			Concurrency: 8,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for lalilo.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No lalilo.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'lalilo init' to create one")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse lalilo.json: " + err.Error()).
			WithSuggestion("Check that lalilo.json is valid JSON (comments are allowed)")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New("E101").Wrap(err)
	}
	cfg.configPath = abs
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E303").WithDetail(path).Wrap(err)
	}

	c.configPath = path
	return nil
}

// SetPath sets the location the configuration is resolved against.
func (c *Config) SetPath(path string) {
	c.configPath = path
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root: the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if strings.Trim(c.Entry, "/") == "" {
		c.Entry = d.Entry
	}

	if c.Template.Command == "" {
		c.Template.Command = d.Template.Command
	}
	if c.Template.ConfigDir == "" {
		c.Template.ConfigDir = d.Template.ConfigDir
	}
	if c.Template.MaxBuffer <= 0 {
		c.Template.MaxBuffer = d.Template.MaxBuffer
	}
	if c.Template.Env == "" {
		c.Template.Env = d.Template.Env
	}
	if c.Template.Ext == "" {
		c.Template.Ext = d.Template.Ext
	}
	c.Template.Ext = dotted(c.Template.Ext)
	c.Template.BaseURL = NormalizeBaseURL(c.Template.BaseURL)

	if c.Watch.Formats == nil {
		c.Watch.Formats = d.Watch.Formats
	}
	if c.Watch.IgnoreDirs == nil {
		c.Watch.IgnoreDirs = d.Watch.IgnoreDirs
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = d.Watch.Debounce
	}
	if c.Watch.ReloadDelay <= 0 {
		c.Watch.ReloadDelay = d.Watch.ReloadDelay
	}
	if c.Watch.ReloadMaxWait < 0 {
		c.Watch.ReloadMaxWait = 0
	}
	for i, ext := range c.Watch.Formats {
		c.Watch.Formats[i] = dotted(ext)
	}

	for i := range c.Loaders {
		if c.Loaders[i].Ext != "" {
			c.Loaders[i].Ext = dotted(c.Loaders[i].Ext)
		}
	}

	if c.Server.Domain == "" {
		c.Server.Domain = d.Server.Domain
	}
	if c.Server.Port.Min == 0 {
		c.Server.Port.Min = d.Server.Port.Min
	}
	if c.Server.Port.Max == 0 {
		c.Server.Port.Max = d.Server.Port.Max
	}
	if c.Server.Port.Default == 0 {
		c.Server.Port.Default = c.Server.Port.Min
	}
	if c.Server.UTF8Exts == nil {
		c.Server.UTF8Exts = d.Server.UTF8Exts
	}

	if c.Icon.Stylesheet == "" {
		c.Icon.Stylesheet = d.Icon.Stylesheet
	}
	if c.Icon.BaseImport == "" {
		c.Icon.BaseImport = d.Icon.BaseImport
	}
	if c.Icon.FontBaseURL == "" {
		c.Icon.FontBaseURL = d.Icon.FontBaseURL
	}
	if c.Icon.DefaultSet == "" {
		c.Icon.DefaultSet = d.Icon.DefaultSet
	}

	if c.Style.Compiler == "" {
		c.Style.Compiler = d.Style.Compiler
	}
	if c.Style.Ext == "" {
		c.Style.Ext = d.Style.Ext
	}
	c.Style.Ext = dotted(c.Style.Ext)

	if c.Notify.Title == "" {
		c.Notify.Title = d.Notify.Title
	}

	if c.Build.Dest == "" {
		c.Build.Dest = d.Build.Dest
	}
	if c.Build.Exts == nil {
		c.Build.Exts = d.Build.Exts
	}
	for i, ext := range c.Build.Exts {
		c.Build.Exts[i] = strings.ToLower(dotted(ext))
	}
	if c.Build.Concurrency <= 0 {
		c.Build.Concurrency = d.Build.Concurrency
	}
}

// Validate checks if the configuration is usable. Missing source
// subdirectories are not an error; see EnsureDirs.
func (c *Config) Validate() error {
	entry := c.EntryPath()
	info, err := os.Stat(entry)
	if err != nil {
		return errors.New("E102").WithDetail(c.Entry + " is not readable").Wrap(err)
	}
	if !info.IsDir() {
		return errors.New("E102").WithDetail(c.Entry + " is not a directory")
	}

	p := c.Server.Port
	if p.Min < 1 || p.Max > 65535 || p.Min > p.Max {
		return errors.New("E103").
			WithDetail("port range must satisfy 1 <= min <= max <= 65535, got " + strconv.Itoa(p.Min) + "-" + strconv.Itoa(p.Max))
	}
	if p.Default < p.Min || p.Default > p.Max {
		return errors.New("E103").
			WithDetail("default port " + strconv.Itoa(p.Default) + " is outside " + strconv.Itoa(p.Min) + "-" + strconv.Itoa(p.Max))
	}

	if err := c.CheckBuildDest(); err != nil {
		return err
	}

	if c.HasSSL() {
		key, cert := c.SSLPaths()
		for _, f := range []string{key, cert} {
			if _, err := os.Stat(f); err != nil {
				return errors.New("E102").WithDetail(f + " is not readable").Wrap(err)
			}
		}
	}

	if !ValidEnvironment(c.Template.Env) {
		return errors.New("E104").WithDetail("got " + strconv.Quote(c.Template.Env))
	}

	if c.Template.Enabled {
		if c.Template.Entry == "" {
			return errors.New("E102").
				WithDetail("template.entry is required when templates are enabled")
		}
		if _, err := os.Stat(c.TemplateEntryPath()); err != nil {
			return errors.New("E102").WithDetail(c.Template.Entry + " is not readable").Wrap(err)
		}
	}

	for i, l := range c.Loaders {
		if l.Title == "" || l.Exec == "" {
			return errors.New("E105").
				WithDetail("loaders[" + strconv.Itoa(i) + "] needs both title and exec")
		}
		if _, err := os.Stat(c.LoaderPath(l)); err != nil {
			return errors.New("E105").WithDetail(l.Title + ": " + l.Exec + " is not readable").Wrap(err)
		}
	}

	return nil
}

// CheckBuildDest rejects an export directory that an export would wipe
// along with the project: the project root, the entry directory, or any
// directory containing either.
func (c *Config) CheckBuildDest() error {
	dest := filepath.Clean(c.BuildDestPath())
	for _, dir := range []string{c.Dir(), c.EntryPath()} {
		if contains(dest, filepath.Clean(dir)) {
			return errors.New("E108").
				WithDetail(c.Build.Dest + " contains " + dir).
				WithSuggestion("Point build.dest at a dedicated directory such as \"" + DefaultBuildDest + "\"")
		}
	}
	return nil
}

// contains reports whether path is dir or lies below it.
func contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// EnsureDirs creates missing source subdirectories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.IconPath(), c.SCSSPath(), c.CSSPath(), c.HTMLPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.New("E102").WithDetail(dir).Wrap(err)
		}
	}
	return nil
}

// ValidEnvironment reports whether env is a known renderer environment.
func ValidEnvironment(env string) bool {
	for _, e := range Environments {
		if e == env {
			return true
		}
	}
	return false
}

// NormalizeBaseURL ensures a non-empty base URL ends with exactly one slash.
func NormalizeBaseURL(u string) string {
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// HasSSL reports whether both certificate files are configured.
func (c *Config) HasSSL() bool {
	return c.Server.SSL.Key != "" && c.Server.SSL.Cert != ""
}

// rootPath resolves p against the project root.
func (c *Config) rootPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// entryPath resolves p against the entry directory.
func (c *Config) entryPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.EntryPath(), p)
}

// EntryPath returns the absolute source directory.
func (c *Config) EntryPath() string { return c.rootPath(c.Entry) }

// IconPath returns the absolute icon set directory.
func (c *Config) IconPath() string { return c.entryPath(c.Dirs.Icon) }

// SCSSPath returns the absolute stylesheet source directory.
func (c *Config) SCSSPath() string { return c.entryPath(c.Dirs.SCSS) }

// CSSPath returns the absolute compiled stylesheet directory.
func (c *Config) CSSPath() string { return c.entryPath(c.Dirs.CSS) }

// HTMLPath returns the absolute compiled page tree.
func (c *Config) HTMLPath() string { return c.entryPath(c.Dirs.HTML) }

// WatchIgnorePaths returns the absolute directories excluded from reloads.
func (c *Config) WatchIgnorePaths() []string {
	paths := make([]string, 0, len(c.Watch.IgnoreDirs))
	for _, dir := range c.Watch.IgnoreDirs {
		paths = append(paths, c.entryPath(dir))
	}
	return paths
}

// BuildIgnorePaths returns the absolute directories excluded from export.
func (c *Config) BuildIgnorePaths() []string {
	paths := make([]string, 0, len(c.Build.IgnoreDirs))
	for _, dir := range c.Build.IgnoreDirs {
		paths = append(paths, c.entryPath(dir))
	}
	return paths
}

// BuildIncludePaths returns the absolute files always exported.
func (c *Config) BuildIncludePaths() []string {
	paths := make([]string, 0, len(c.Build.IncludeFiles))
	for _, f := range c.Build.IncludeFiles {
		paths = append(paths, c.entryPath(f))
	}
	return paths
}

// BuildDestPath returns the absolute export directory.
func (c *Config) BuildDestPath() string { return c.rootPath(c.Build.Dest) }

// TemplateEntryPath returns the absolute renderer script.
func (c *Config) TemplateEntryPath() string { return c.rootPath(c.Template.Entry) }

// TemplateConfigPath returns the absolute renderer config directory.
func (c *Config) TemplateConfigPath() string { return c.rootPath(c.Template.ConfigDir) }

// LoaderPath returns the absolute program path of a loader.
func (c *Config) LoaderPath(l LoaderConfig) string { return c.rootPath(l.Exec) }

// SSLPaths returns the absolute key and certificate paths.
func (c *Config) SSLPaths() (key, cert string) {
	return c.rootPath(c.Server.SSL.Key), c.rootPath(c.Server.SSL.Cert)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing lalilo.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No lalilo.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'lalilo init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func dotted(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
