// SPDX-License-Identifier: MIT

// Package schema describes the configuration keys the packaging workflow
// understands and validates documents against them.
package schema

import (
	"fmt"
	"sync"

	"github.com/packspec/packspec/internal/spec"
)

// Kind describes how a field's raw string value is interpreted.
type Kind string

const (
	KindString Kind = "str"
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindList   Kind = "list"
	KindEnum   Kind = "enum"
)

// Status defines the lifecycle state of a configuration field.
type Status string

const (
	StatusStable     Status = "Stable"
	StatusDeprecated Status = "Deprecated"
)

// Field defines a single recognized configuration key.
type Field struct {
	Section  string
	Key      string
	Kind     Kind
	Default  string   // empty means no default
	Enum     []string // allowed values for KindEnum
	Required bool
	Help     string // one-line description, used by the init template
	Status   Status

	// Deprecation metadata, set when Status is StatusDeprecated.
	ReplacedBy      string
	DeprecatedSince string
	RemovalVersion  string
}

// Path returns the section-qualified name, e.g. "app.android.api".
func (f Field) Path() string {
	return f.Section + "." + f.Key
}

// EnvKey returns the environment variable overriding this field.
func (f Field) EnvKey() string {
	return spec.EnvKey(f.Section, f.Key)
}

// SectionApp holds the application and build parameters.
const SectionApp = "app"

// SectionTool holds the tool's own settings.
const SectionTool = "packspec"

// Orientations recognized for the app.orientation field.
var Orientations = []string{"landscape", "portrait", "all", "sensorLandscape", "sensorPortrait"}

// LogLevels recognized for the packspec.log_level field. Numeric values
// follow the classic 0 = error, 1 = info, 2 = debug scale; the named
// variants map onto the same levels.
var LogLevels = []string{"0", "1", "2", "error", "info", "debug"}

// Registry is the inventory of recognized configuration fields.
type Registry struct {
	Fields []Field

	byPath map[string]Field
}

var (
	globalRegistry    *Registry
	globalRegistryErr error
	registryOnce      sync.Once
)

// GetRegistry returns the global field registry. It returns an error if
// the registry contains duplicate paths. Thread-safe via sync.Once.
func GetRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		globalRegistry, globalRegistryErr = buildRegistry()
	})
	return globalRegistry, globalRegistryErr
}

func buildRegistry() (*Registry, error) {
	fields := []Field{
		// --- APP IDENTITY ---
		{Section: SectionApp, Key: "title", Kind: KindString, Required: true,
			Help: "Title of your application"},
		{Section: SectionApp, Key: "package.name", Kind: KindString, Required: true,
			Help: "Package name"},
		{Section: SectionApp, Key: "package.domain", Kind: KindString, Required: true,
			Help: "Package domain (reverse-DNS, needed for packaging)"},

		// --- SOURCE LAYOUT ---
		{Section: SectionApp, Key: "source.dir", Kind: KindString, Default: ".",
			Help: "Source code directory where the main entry point lives"},
		{Section: SectionApp, Key: "source.include_exts", Kind: KindList, Default: "py,png,jpg,kv,atlas",
			Help: "Source file extensions to include (leave empty to include all files)"},
		{Section: SectionApp, Key: "source.exclude_exts", Kind: KindList,
			Help: "Source file extensions to exclude"},
		{Section: SectionApp, Key: "source.exclude_dirs", Kind: KindList,
			Help: "Directories to exclude"},
		{Section: SectionApp, Key: "source.exclude_patterns", Kind: KindList,
			Help: "Exclusions using pattern matching"},

		// --- VERSIONING ---
		{Section: SectionApp, Key: "version", Kind: KindString,
			Help: "Application version"},
		{Section: SectionApp, Key: "version.regex", Kind: KindString,
			Help: "Regex capturing the version from version.filename"},
		{Section: SectionApp, Key: "version.filename", Kind: KindString,
			Help: "File searched for the version string"},

		// --- RUNTIME ---
		{Section: SectionApp, Key: "requirements", Kind: KindList, Default: "python3,kivy",
			Help: "Application requirements, comma separated"},
		{Section: SectionApp, Key: "presplash.filename", Kind: KindString,
			Help: "Presplash image of the application"},
		{Section: SectionApp, Key: "icon.filename", Kind: KindString,
			Help: "Icon of the application"},
		{Section: SectionApp, Key: "orientation", Kind: KindEnum, Default: "portrait", Enum: Orientations,
			Help: "Supported orientation"},
		{Section: SectionApp, Key: "fullscreen", Kind: KindBool, Default: "0",
			Help: "Whether the application runs fullscreen"},

		// --- ANDROID ---
		{Section: SectionApp, Key: "android.permissions", Kind: KindList,
			Help: "Android permissions"},
		{Section: SectionApp, Key: "android.api", Kind: KindInt, Default: "33",
			Help: "Android API level to target"},
		{Section: SectionApp, Key: "android.minapi", Kind: KindInt, Default: "21",
			Help: "Minimum API level the artifact will support"},
		{Section: SectionApp, Key: "android.sdk", Kind: KindInt, Status: StatusDeprecated,
			ReplacedBy: "android.api", DeprecatedSince: "0.5.0", RemovalVersion: "1.0.0",
			Help: "Android SDK version (the SDK is managed automatically now)"},
		{Section: SectionApp, Key: "android.ndk", Kind: KindString, Default: "25b",
			Help: "Android NDK version to use"},
		{Section: SectionApp, Key: "android.ndk_path", Kind: KindString,
			Help: "Existing NDK directory, downloaded otherwise"},
		{Section: SectionApp, Key: "android.sdk_path", Kind: KindString,
			Help: "Existing SDK directory, downloaded otherwise"},
		{Section: SectionApp, Key: "android.accept_sdk_license", Kind: KindBool, Default: "False",
			Help: "Accept the SDK license automatically"},
		{Section: SectionApp, Key: "android.archs", Kind: KindList, Default: "arm64-v8a, armeabi-v7a",
			Help: "Android architectures to build for"},
		{Section: SectionApp, Key: "android.arch", Kind: KindString, Status: StatusDeprecated,
			ReplacedBy: "android.archs", DeprecatedSince: "0.6.0", RemovalVersion: "1.0.0",
			Help: "Single Android architecture to build for"},
		{Section: SectionApp, Key: "android.allow_backup", Kind: KindBool, Default: "True",
			Help: "Allow the Android backup framework to back the app up"},
		{Section: SectionApp, Key: "android.release_artifact", Kind: KindEnum, Default: "aab",
			Enum: []string{"aab", "apk", "aar"},
			Help: "Artifact to generate in release mode"},
		{Section: SectionApp, Key: "android.debug_artifact", Kind: KindEnum, Default: "apk",
			Enum: []string{"apk", "aar"},
			Help: "Artifact to generate in debug mode"},
		{Section: SectionApp, Key: "android.enable_androidx", Kind: KindBool, Default: "False",
			Help: "Enable AndroidX support"},
		{Section: SectionApp, Key: "android.gradle_dependencies", Kind: KindList,
			Help: "Gradle dependencies to add"},
		{Section: SectionApp, Key: "android.add_jars", Kind: KindList,
			Help: "Java .jar files to add to the libs"},
		{Section: SectionApp, Key: "android.entrypoint", Kind: KindString,
			Default: "org.kivy.android.PythonActivity",
			Help: "Android entry point, use only with custom bootstraps"},

		// --- PYTHON-FOR-ANDROID ---
		{Section: SectionApp, Key: "p4a.branch", Kind: KindString, Default: "master",
			Help: "python-for-android branch to use"},
		{Section: SectionApp, Key: "p4a.bootstrap", Kind: KindString, Default: "sdl2",
			Help: "python-for-android bootstrap to use"},
		{Section: SectionApp, Key: "p4a.local_recipes", Kind: KindString,
			Help: "Directory containing custom recipes"},

		// --- TOOL ---
		{Section: SectionTool, Key: "log_level", Kind: KindEnum, Default: "2", Enum: LogLevels,
			Help: "Log level (0 = error only, 1 = info, 2 = debug)"},
		{Section: SectionTool, Key: "warn_on_root", Kind: KindBool, Default: "1",
			Help: "Display a warning when running as root"},
		{Section: SectionTool, Key: "build_dir", Kind: KindString, Default: "./.packspec",
			Help: "Path to the build workspace"},
		{Section: SectionTool, Key: "bin_dir", Kind: KindString, Default: "./bin",
			Help: "Path to the build output directory"},
	}

	r := &Registry{
		Fields: fields,
		byPath: make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		path := f.Path()
		if _, dup := r.byPath[path]; dup {
			return nil, fmt.Errorf("duplicate registry path: %s", path)
		}
		r.byPath[path] = f
	}
	return r, nil
}

// Lookup returns the field registered for section and key.
func (r *Registry) Lookup(section, key string) (Field, bool) {
	f, ok := r.byPath[section+"."+key]
	return f, ok
}

// SectionFields returns the fields of one section in registry order.
func (r *Registry) SectionFields(section string) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}

// KnownSection reports whether the registry recognizes the section name.
func (r *Registry) KnownSection(section string) bool {
	return section == SectionApp || section == SectionTool
}

// ApplyDefaults inserts every registered default into doc for fields that
// are absent, returning the number of inserted entries. Existing entries,
// including bare ones, are left alone.
func (r *Registry) ApplyDefaults(doc *spec.Document) int {
	inserted := 0
	for _, f := range r.Fields {
		if f.Default == "" || f.Status == StatusDeprecated {
			continue
		}
		s := doc.EnsureSection(f.Section)
		if s.Has(f.Key) {
			continue
		}
		s.Set(f.Key, spec.EscapeValue(f.Default))
		inserted++
	}
	return inserted
}
