// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	SetDefault(NewLogger(JSONHandlerWithLevel(&buf, LevelDebug)))
	t.Cleanup(func() {
		SetDefault(NewLogger(DiscardHandler()))
	})
	return &buf
}

func decodeLine(t *testing.T, line string) map[string]any {
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestWithContextLateBinding(t *testing.T) {
	// created before the root handler is configured
	pkgLogger := WithContext("pkg", "test")

	buf := capture(t)
	pkgLogger.Info("hello", "k", "v")

	entry := decodeLine(t, buf.String())
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["pkg"])
	assert.Equal(t, "v", entry["k"])
}

func TestWithContextMerge(t *testing.T) {
	buf := capture(t)

	WithContext("a", "1").With("b", "2").Warn("merged")

	entry := decodeLine(t, buf.String())
	assert.Equal(t, "1", entry["a"])
	assert.Equal(t, "2", entry["b"])
}

func TestRootSwap(t *testing.T) {
	pkgLogger := WithContext("pkg", "test")

	first := capture(t)
	pkgLogger.Info("one")

	var second bytes.Buffer
	SetDefault(NewLogger(JSONHandlerWithLevel(&second, LevelDebug)))
	pkgLogger.Info("two")

	assert.Contains(t, first.String(), "one")
	assert.NotContains(t, first.String(), "two")
	assert.Contains(t, second.String(), "two")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(JSONHandlerWithLevel(&buf, LevelInfo)))
	t.Cleanup(func() {
		SetDefault(NewLogger(DiscardHandler()))
	})

	logger := WithContext("pkg", "test")
	logger.Debug("quiet")
	logger.Info("loud")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "loud")
}
