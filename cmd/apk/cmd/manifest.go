package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apkforge/apk/pkginfo"
)

// manifest is the YAML build manifest describing the package to assemble.
// It covers the declarative half of the metadata record; size, datahash and
// builddate are filled in by the build.
type manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Arch        string   `yaml:"arch"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	License     string   `yaml:"license"`
	Origin      string   `yaml:"origin"`
	Commit      string   `yaml:"commit"`
	Packager    string   `yaml:"packager"`
	BuildDate   int64    `yaml:"builddate"`
	Depends     []string `yaml:"depends"`
	Provides    []string `yaml:"provides"`
	Replaces    []string `yaml:"replaces"`
	InstallIf   []string `yaml:"install_if"`
}

func loadManifest(path string) (*pkginfo.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m.toPackage(), nil
}

func (m *manifest) toPackage() *pkginfo.Package {
	buildDate := m.BuildDate
	if buildDate == 0 {
		buildDate = time.Now().Unix()
	}
	return &pkginfo.Package{
		Name:        m.Name,
		Version:     m.Version,
		Arch:        m.Arch,
		Description: m.Description,
		URL:         m.URL,
		License:     m.License,
		Origin:      m.Origin,
		Commit:      m.Commit,
		Packager:    m.Packager,
		BuildDate:   buildDate,
		Depends:     m.Depends,
		Provides:    m.Provides,
		Replaces:    m.Replaces,
		InstallIf:   m.InstallIf,
	}
}
