package license

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// DefaultExtension is appended to the product name to form the license file name.
const DefaultExtension = ".lic"

// DirectoryResolver looks for "<product><extension>" in StartDir and each of
// its parents, returning the first file found.
type DirectoryResolver struct {
	StartDir  string
	Extension string
}

// NewDirectoryResolver creates a resolver rooted at startDir.
func NewDirectoryResolver(startDir, extension string) *DirectoryResolver {
	if extension == "" {
		extension = DefaultExtension
	}
	return &DirectoryResolver{StartDir: startDir, Extension: extension}
}

// ResolveLicenseText implements licensetoken.LicenseResolver.
func (r *DirectoryResolver) ResolveLicenseText(productName string) (string, bool) {
	if !safeFileName(productName) || strings.TrimSpace(r.StartDir) == "" {
		return "", false
	}

	dir, err := filepath.Abs(r.StartDir)
	if err != nil {
		return "", false
	}

	fileName := productName + r.Extension
	for {
		path := filepath.Join(dir, fileName)
		// #nosec G304 - file name is a validated product name within the search path
		if data, err := os.ReadFile(path); err == nil {
			logrus.Debugf("License loaded from file: %s", path)
			return strings.TrimSpace(string(data)), true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// safeFileName rejects product names that would escape the searched directory.
func safeFileName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

// EnvResolver reads licenses from environment variables named Prefix followed
// by the product name upper-cased, with every other character replaced by '_'.
type EnvResolver struct {
	Prefix string
}

// VariableName returns the environment variable consulted for productName.
func (r EnvResolver) VariableName(productName string) string {
	var b strings.Builder
	b.WriteString(r.Prefix)
	for _, c := range strings.ToUpper(productName) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ResolveLicenseText implements licensetoken.LicenseResolver. Empty
// variables count as absent.
func (r EnvResolver) ResolveLicenseText(productName string) (string, bool) {
	if strings.TrimSpace(productName) == "" {
		return "", false
	}
	name := r.VariableName(productName)
	token := strings.TrimSpace(os.Getenv(name))
	if token == "" {
		return "", false
	}
	logrus.Debugf("License loaded from environment variable: %s", name)
	return token, true
}

// ChainResolver asks each resolver in turn and returns the first license found.
type ChainResolver []licensetoken.LicenseResolver

// ResolveLicenseText implements licensetoken.LicenseResolver.
func (c ChainResolver) ResolveLicenseText(productName string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if token, ok := r.ResolveLicenseText(productName); ok {
			return token, true
		}
	}
	return "", false
}

// NewResolver builds the standard lookup: environment variables first, then
// the upward directory search.
func NewResolver(searchPath, extension, envPrefix string) ChainResolver {
	chain := ChainResolver{}
	if envPrefix != "" {
		chain = append(chain, EnvResolver{Prefix: envPrefix})
	}
	if searchPath != "" {
		chain = append(chain, NewDirectoryResolver(searchPath, extension))
	}
	return chain
}

// StaticSource is a fixed list of producers.
type StaticSource []licensetoken.Producer

// ResolveCandidates implements licensetoken.CandidateSource.
func (s StaticSource) ResolveCandidates() []licensetoken.Producer {
	out := make([]licensetoken.Producer, len(s))
	copy(out, s)
	return out
}
