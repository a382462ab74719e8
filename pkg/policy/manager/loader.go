package manager

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"arbiter-hq/arbiter/pkg/policy"
)

// LoaderConfig contains configuration for the policy loader.
type LoaderConfig struct {
	// MaxFileSize is the maximum policy file size in bytes.
	// Default: 1MB.
	MaxFileSize int64

	// AllowedExtensions is the list of file extensions treated as
	// policy files. Default: ".yaml", ".yml".
	AllowedExtensions []string

	// SkipHidden controls whether hidden files and directories are
	// skipped when loading a directory. Default: true.
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".yaml", ".yml"},
		SkipHidden:        true,
	}
}

// Loader reads policies from the file system, one policy per YAML
// file. It performs size and UTF-8 validation before parsing.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a policy loader. A nil config uses defaults.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// policyDocument mirrors policy.Policy for decoding. Enabled is a
// pointer so a file that omits it gets the enabled default.
type policyDocument struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Domain      string        `yaml:"domain"`
	Description string        `yaml:"description"`
	Rules       []policy.Rule `yaml:"rules"`
	Enabled     *bool         `yaml:"enabled"`
	CreatedAt   time.Time     `yaml:"created_at"`
	UpdatedAt   time.Time     `yaml:"updated_at"`
}

// LoadFromFile loads a single policy from the given path. A file
// without an id gets a generated one; a file without an enabled flag
// is enabled; missing timestamps are set to now.
func (l *Loader) LoadFromFile(path string) (*policy.Policy, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}

	if fileInfo.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", fileInfo.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{FilePath: path, Message: "YAML parsing failed", Cause: err}
	}

	p := l.toPolicy(&doc)
	if err := p.Validate(); err != nil {
		return nil, &ParseError{FilePath: path, Message: "invalid policy", Cause: err}
	}

	return p, nil
}

func (l *Loader) toPolicy(doc *policyDocument) *policy.Policy {
	now := time.Now().UTC()
	p := &policy.Policy{
		ID:          doc.ID,
		Name:        doc.Name,
		Domain:      doc.Domain,
		Description: doc.Description,
		Rules:       doc.Rules,
		Enabled:     true,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if doc.Enabled != nil {
		p.Enabled = *doc.Enabled
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return p
}

// LoadFromDirectory loads all policy files from the given directory
// recursively. It returns the successfully loaded policies and any
// errors encountered; both can be non-empty at the same time.
func (l *Loader) LoadFromDirectory(dir string) ([]*policy.Policy, error) {
	fileInfo, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: dir, Message: "directory not found", Cause: err}
		}
		return nil, &LoadError{FilePath: dir, Message: "failed to access directory", Cause: err}
	}
	if !fileInfo.IsDir() {
		return nil, &LoadError{FilePath: dir, Message: "not a directory"}
	}

	policyFiles, err := l.collectPolicyFiles(dir)
	if err != nil {
		return nil, err
	}

	var policies []*policy.Policy
	errList := &ErrorList{}

	for _, filePath := range policyFiles {
		p, err := l.LoadFromFile(filePath)
		if err != nil {
			errList.Add(err)
			continue
		}
		policies = append(policies, p)
	}

	return policies, errList.ToError()
}

// collectPolicyFiles collects all policy file paths in the given
// directory, filtering by extension and skipping hidden files.
func (l *Loader) collectPolicyFiles(dir string) ([]string, error) {
	var policyFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if l.HasValidExtension(path) {
			policyFiles = append(policyFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}

	return policyFiles, nil
}

// HasValidExtension reports whether the file has a policy file
// extension.
func (l *Loader) HasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, validExt := range l.config.AllowedExtensions {
		if ext == strings.ToLower(validExt) {
			return true
		}
	}
	return false
}
