// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package doc

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestVersion(t *testing.T) {
	// ensure the version loaded from the yaml file meets the semver format, eg. 1.2.3
	validVersion := regexp.MustCompile(`^\d+(\.\d+){2}$`)

	assert.True(t, validVersion.Match([]byte(Version())))
}

func TestSpecServed(t *testing.T) {
	srv := httptest.NewServer(http.FileServer(http.FS(FS)))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/termvault.yaml")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var spec struct {
		OpenAPI string         `yaml:"openapi"`
		Paths   map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.NewDecoder(res.Body).Decode(&spec))
	assert.True(t, regexp.MustCompile(`^3\.`).MatchString(spec.OpenAPI))
	assert.Contains(t, spec.Paths, "/staking/plans")
	assert.Contains(t, spec.Paths, "/health")
}
