package apk

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apkforge/apk/pkginfo"
)

func createTestFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

type segmentEntry struct {
	header *tar.Header
	body   []byte
}

// readFirstMember decompresses only the first gzip member of data and
// returns its tar entries.
func readFirstMember(t *testing.T, data []byte) []segmentEntry {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()
	zr.Multistream(false)

	var entries []segmentEntry
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries = append(entries, segmentEntry{header: hdr, body: body})
	}
	return entries
}

func entryNames(entries []segmentEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.header.Name)
	}
	return names
}

// buildTestPayload runs only the payload stage with the given options,
// returning the compressed payload segment.
func buildTestPayload(t *testing.T, dir string, opts ...BuildOption) []byte {
	t.Helper()

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	seg, _, err := buildPayloadSegment(context.Background(), &cfg, dir, cfg.filterSet())
	require.NoError(t, err)
	return seg
}

func testPackage() *pkginfo.Package {
	return &pkginfo.Package{Name: "hello", Version: "1.0", Arch: "x86_64"}
}

func TestBuildEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"bin/hello": "helloworld"})

	pkg := testPackage()
	f, err := Build(context.Background(), pkg, dir)
	require.NoError(t, err)

	// The caller's record is never mutated.
	assert.Zero(t, pkg.Size)
	assert.Empty(t, pkg.DataHash)

	got := f.Package()
	assert.Equal(t, int64(10), got.Size)

	// The payload stage is deterministic, so rebuilding it gives the exact
	// compressed member the archive ends with.
	payloadSeg := buildTestPayload(t, dir)
	require.True(t, bytes.HasSuffix(f.Bytes(), payloadSeg))

	want := sha256.Sum256(payloadSeg)
	assert.Equal(t, hex.EncodeToString(want[:]), got.DataHash)

	// First member: exactly one .PKGINFO, parsable on its own.
	entries := readFirstMember(t, f.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, ".PKGINFO", entries[0].header.Name)

	decoded, err := pkginfo.Decode(bytes.NewReader(entries[0].body))
	require.NoError(t, err)
	assert.Equal(t, got, decoded)

	// Payload member is an independently valid stream.
	names := entryNames(readFirstMember(t, payloadSeg))
	assert.Equal(t, []string{"bin/", "bin/hello"}, names)
}

func TestBuildRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"etc/app.conf": "option=1\n"})

	pkg := testPackage()
	pkg.Description = "round trip"
	pkg.URL = "https://example.org"
	pkg.Depends = []string{"musl", "zlib"}
	pkg.Provides = []string{"cmd:hello=1.0"}

	f, err := Build(context.Background(), pkg, dir)
	require.NoError(t, err)

	back, err := Read(bytes.NewReader(f.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, f.Package(), back.Package())
}

func TestBuildIdempotentHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"a": "one", "b/c": "two"})

	f1, err := Build(context.Background(), testPackage(), dir)
	require.NoError(t, err)
	f2, err := Build(context.Background(), testPackage(), dir)
	require.NoError(t, err)

	assert.NotEmpty(t, f1.Package().DataHash)
	assert.Equal(t, f1.Package().DataHash, f2.Package().DataHash)
}

func TestBuildDebugExclusion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{
		"usr/bin/tool":              "abc",
		"usr/lib/.debug/tool.debug": "debug symbols",
	})

	f, err := Build(context.Background(), testPackage(), dir)
	require.NoError(t, err)

	// Installed size counts only admitted files.
	assert.Equal(t, int64(3), f.Package().Size)

	payloadSeg := buildTestPayload(t, dir)
	for _, name := range entryNames(readFirstMember(t, payloadSeg)) {
		assert.NotContains(t, name, ".debug")
	}
}

func TestBuildEntryNamesMatchFilterSet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{
		"src/a.c": "int a;",
		"src/a.o": "\x7fELF",
		"src/b.c": "int b;",
	})

	noObjects := func(p string) bool { return !strings.HasSuffix(p, ".o") }
	payloadSeg := buildTestPayload(t, dir, BuildWithFilters(noObjects))

	names := entryNames(readFirstMember(t, payloadSeg))
	assert.Equal(t, []string{"src/", "src/a.c", "src/b.c"}, names)
}

func TestBuildSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"bin/hello": "helloworld"})
	require.NoError(t, os.Symlink("hello", filepath.Join(dir, "bin", "hi")))

	payloadSeg := buildTestPayload(t, dir)
	entries := readFirstMember(t, payloadSeg)

	var link *tar.Header
	for _, e := range entries {
		if e.header.Name == "bin/hi" {
			link = e.header
		}
	}
	require.NotNil(t, link)
	assert.Equal(t, byte(tar.TypeSymlink), link.Typeflag)
	assert.Equal(t, "hello", link.Linkname)
}

func TestBuildWithoutDataHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"a": "x"})

	f, err := Build(context.Background(), testPackage(), dir, BuildWithoutDataHash())
	require.NoError(t, err)
	assert.Empty(t, f.Package().DataHash)
}

func TestBuildLegacyHashAlgorithm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"a": "x"})

	f, err := Build(context.Background(), testPackage(), dir, BuildWithHashAlgorithm(HashSHA1))
	require.NoError(t, err)
	assert.Len(t, f.Package().DataHash, 40)
}

func TestBuildUnknownHashAlgorithm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Build(context.Background(), testPackage(), dir, BuildWithHashAlgorithm("md5"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildChecksumHelperPassThrough(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("needs cat")
	}

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"bin/hello": "helloworld"})

	plain, err := Build(context.Background(), testPackage(), dir)
	require.NoError(t, err)

	piped, err := Build(context.Background(), testPackage(), dir, BuildWithChecksumHelper("cat"))
	require.NoError(t, err)

	assert.Equal(t, plain.Package().DataHash, piped.Package().DataHash)
}

func TestBuildChecksumHelperFailure(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("needs false")
	}

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"a": "x"})

	_, err := Build(context.Background(), testPackage(), dir, BuildWithChecksumHelper("false"))
	require.Error(t, err)

	var stage *StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "payload", stage.Stage)
}

func TestBuildInvalidRecord(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), &pkginfo.Package{}, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildMissingSourceDir(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), testPackage(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)

	var stage *StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, "payload", stage.Stage)
}

func TestBuildCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{"a": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, testPackage(), dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInstalledSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string]string{
		"a":     "12345",
		"b/c":   "123",
		"b/d/e": "1234567",
	})
	require.NoError(t, os.Symlink("a", filepath.Join(dir, "lnk")))

	size, err := installedSize(dir, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(15), size)
}
