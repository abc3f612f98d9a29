package apk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSetEmptyAdmitsEverything(t *testing.T) {
	t.Parallel()

	var s FilterSet
	assert.True(t, s.Admits("bin/hello"))
	assert.True(t, s.Admits("usr/lib/.debug/foo"))
}

func TestFilterSetAndComposition(t *testing.T) {
	t.Parallel()

	noLogs := func(p string) bool { return !strings.HasSuffix(p, ".log") }
	noTmp := func(p string) bool { return !strings.HasPrefix(p, "tmp/") }
	s := NewFilterSet(noLogs, noTmp)

	assert.True(t, s.Admits("bin/hello"))
	assert.False(t, s.Admits("var/build.log"))
	assert.False(t, s.Admits("tmp/scratch"))
	assert.False(t, s.Admits("tmp/scratch.log"))
}

func TestFilterSetWithIsACopy(t *testing.T) {
	t.Parallel()

	base := NewFilterSet()
	extended := base.With(func(string) bool { return false })

	assert.True(t, base.Admits("anything"))
	assert.False(t, extended.Admits("anything"))
}

func TestExcludeDebugPaths(t *testing.T) {
	t.Parallel()

	s := DefaultFilterSet()
	assert.False(t, s.Admits("usr/lib/.debug/hello.debug"))
	assert.False(t, s.Admits(".debug/x"))
	assert.False(t, s.Admits("a/b/.debug"))
	assert.True(t, s.Admits("usr/lib/debugger"))
	assert.True(t, s.Admits("usr/lib/my.debugged.so"))
}
