package config

import (
	"strings"

	"github.com/spf13/viper"
)

type agentConfig struct {
	Port          int    `toml:"port" mapstructure:"port" json:"port"`
	UploadDir     string `toml:"upload_dir" mapstructure:"upload_dir" json:"upload_dir"`
	DefaultOpener string `toml:"default_opener" mapstructure:"default_opener" json:"default_opener"`
	MaxUploadSize int64  `toml:"max_upload_size" mapstructure:"max_upload_size" json:"max_upload_size"`
	// AllowedExtensions without the leading dot. Empty allows everything.
	AllowedExtensions []string `toml:"allowed_extensions" mapstructure:"allowed_extensions" json:"allowed_extensions"`
	// Openers maps an extension without the leading dot to the application
	// that opens it. Keys can not contain dots, viper uses them as separators.
	Openers map[string]string `toml:"openers" mapstructure:"openers" json:"openers"`
}

var defaultOpeners = map[string]any{
	"pdf":  "okular",
	"txt":  "gedit",
	"png":  "eog",
	"jpg":  "eog",
	"jpeg": "eog",
	"webp": "eog",
	"gif":  "eog",
	"mp4":  "vlc",
	"mp3":  "vlc",
	"docx": "desktopeditors",
	"xlsx": "desktopeditors",
	"pptx": "desktopeditors",
	"odt":  "desktopeditors",
	"ods":  "desktopeditors",
	"odp":  "desktopeditors",
	"csv":  "desktopeditors",
	"zip":  "file-roller",
	"tar":  "file-roller",
	"gz":   "file-roller",
	"bz2":  "file-roller",
	"xz":   "file-roller",
	"7z":   "file-roller",
	"rar":  "file-roller",
	"avi":  "vlc",
	"mkv":  "vlc",
	"mov":  "vlc",
	"wmv":  "vlc",
	"flv":  "vlc",
	"webm": "vlc",
}

var defaultAllowedExtensions = []string{
	"pdf", "txt", "png", "jpg", "jpeg", "gif", "mp4", "mp3", "docx", "xlsx", "pptx",
	"odt", "ods", "odp", "csv", "zip", "tar", "gz", "bz2", "xz", "7z", "rar",
	"avi", "mkv", "mov", "wmv", "flv", "webm",
}

func setAgentDefaults() {
	viper.SetDefault("agent.port", 8080)
	viper.SetDefault("agent.upload_dir", "/tmp/agent-uploads")
	viper.SetDefault("agent.default_opener", "xdg-open")
	viper.SetDefault("agent.max_upload_size", 50*1024*1024)
	viper.SetDefault("agent.allowed_extensions", defaultAllowedExtensions)
	viper.SetDefault("agent.openers", defaultOpeners)
}

// OpenerExtensions returns Openers keyed by dotted, lower-case extension.
func (a agentConfig) OpenerExtensions() map[string]string {
	m := make(map[string]string, len(a.Openers))
	for ext, app := range a.Openers {
		m[dotExt(ext)] = app
	}
	return m
}

// DottedAllowedExtensions returns AllowedExtensions as ".ext", lower-case.
func (a agentConfig) DottedAllowedExtensions() []string {
	exts := make([]string, 0, len(a.AllowedExtensions))
	for _, ext := range a.AllowedExtensions {
		exts = append(exts, dotExt(ext))
	}
	return exts
}

func dotExt(ext string) string {
	return "." + strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
