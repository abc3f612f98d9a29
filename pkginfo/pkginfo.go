package pkginfo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidRecord is returned when a .PKGINFO stream cannot be parsed.
var ErrInvalidRecord = errors.New("pkginfo: invalid record")

// Package is the metadata record carried in an archive's .PKGINFO entry.
//
// Name, Version and Arch are required. Size and DataHash are populated by
// the build pipeline before the metadata segment is written; callers should
// leave them zero when describing a package to be built.
type Package struct {
	Name        string
	Version     string
	Arch        string
	Description string
	URL         string
	License     string
	Origin      string
	Commit      string
	Packager    string
	BuildDate   int64

	// Size is the total uncompressed byte size of the installed payload.
	Size int64

	Depends   []string
	Provides  []string
	Replaces  []string
	InstallIf []string

	// DataHash is the hex-encoded digest of the compressed payload segment.
	DataHash string
}

// Validate reports whether the record carries the fields every package
// must declare.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing pkgname", ErrInvalidRecord)
	}
	if p.Version == "" {
		return fmt.Errorf("%w: missing pkgver", ErrInvalidRecord)
	}
	if p.Arch == "" {
		return fmt.Errorf("%w: missing arch", ErrInvalidRecord)
	}
	return nil
}

// Clone returns a deep copy of the record. The build pipeline clones its
// input so the caller's record is never mutated.
func (p *Package) Clone() *Package {
	c := *p
	c.Depends = append([]string(nil), p.Depends...)
	c.Provides = append([]string(nil), p.Provides...)
	c.Replaces = append([]string(nil), p.Replaces...)
	c.InstallIf = append([]string(nil), p.InstallIf...)
	return &c
}

// Encode writes the record in .PKGINFO format.
//
// Scalar fields with zero values are omitted, except pkgname, pkgver and
// arch which are always written. Sequence fields emit one line per element
// in declaration order.
func Encode(w io.Writer, p *Package) error {
	if err := p.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	writeLine := func(key, value string) {
		bw.WriteString(key)
		bw.WriteString(" = ")
		bw.WriteString(value)
		bw.WriteByte('\n')
	}

	writeLine("pkgname", p.Name)
	writeLine("pkgver", p.Version)
	if p.Description != "" {
		writeLine("pkgdesc", p.Description)
	}
	if p.URL != "" {
		writeLine("url", p.URL)
	}
	if p.BuildDate != 0 {
		writeLine("builddate", strconv.FormatInt(p.BuildDate, 10))
	}
	if p.Packager != "" {
		writeLine("packager", p.Packager)
	}
	writeLine("size", strconv.FormatInt(p.Size, 10))
	writeLine("arch", p.Arch)
	if p.Origin != "" {
		writeLine("origin", p.Origin)
	}
	if p.Commit != "" {
		writeLine("commit", p.Commit)
	}
	if p.License != "" {
		writeLine("license", p.License)
	}
	for _, v := range p.Replaces {
		writeLine("replaces", v)
	}
	for _, v := range p.Depends {
		writeLine("depend", v)
	}
	for _, v := range p.Provides {
		writeLine("provides", v)
	}
	for _, v := range p.InstallIf {
		writeLine("install_if", v)
	}
	if p.DataHash != "" {
		writeLine("datahash", p.DataHash)
	}

	return bw.Flush()
}

// Decode parses a .PKGINFO stream into a record.
//
// Unknown keys are ignored so records written by newer tools still parse.
// A non-empty line without a '=' separator fails with ErrInvalidRecord.
func Decode(r io.Reader) (*Package, error) {
	p := &Package{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %q", ErrInvalidRecord, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "pkgname":
			p.Name = value
		case "pkgver":
			p.Version = value
		case "pkgdesc":
			p.Description = value
		case "url":
			p.URL = value
		case "builddate":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: builddate %q", ErrInvalidRecord, value)
			}
			p.BuildDate = n
		case "packager":
			p.Packager = value
		case "size":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: size %q", ErrInvalidRecord, value)
			}
			p.Size = n
		case "arch":
			p.Arch = value
		case "origin":
			p.Origin = value
		case "commit":
			p.Commit = value
		case "license":
			p.License = value
		case "replaces":
			p.Replaces = append(p.Replaces, value)
		case "depend":
			p.Depends = append(p.Depends, value)
		case "provides":
			p.Provides = append(p.Provides, value)
		case "install_if":
			p.InstallIf = append(p.InstallIf, value)
		case "datahash":
			p.DataHash = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
