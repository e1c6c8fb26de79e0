// Package cargo wraps the external build-system collaborators: the cargo
// build step, the crate metadata and manifest readers, the test-listing
// facility, and the llvm-nm symbol table reader. All raw JSON/TOML/text
// parsing of collaborator output lives here so the rest of the harness only
// sees typed results.
package cargo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Metadata is the subset of `cargo metadata` output the harness needs.
type Metadata struct {
	TargetDirectory string `json:"target_directory"`
}

// ReadMetadata runs `cargo metadata` in the crate directory and parses its
// single JSON document. A non-zero exit is fatal for the run.
func ReadMetadata(ctx context.Context, cargoBin, crateDir string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, cargoBin, "metadata", "--format-version=1", "--no-deps")
	cmd.Dir = crateDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}
	return parseMetadata(out)
}

func parseMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing cargo metadata: %w", err)
	}
	if md.TargetDirectory == "" {
		return nil, fmt.Errorf("cargo metadata: missing target_directory")
	}
	return &md, nil
}

// PackageName reads the crate's package name from its Cargo.toml manifest.
func PackageName(crateDir string) (string, error) {
	data, err := os.ReadFile(crateDir + "/Cargo.toml")
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (string, error) {
	var manifest struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	if manifest.Package.Name == "" {
		return "", fmt.Errorf("manifest has no package name")
	}
	return manifest.Package.Name, nil
}

// CrateLabel converts a package name to the label cargo uses when naming
// build artifacts.
func CrateLabel(packageName string) string {
	return strings.ReplaceAll(packageName, "-", "_")
}
