// Package manifest parses and validates the application bundle format:
// a tar archive (compressed with klauspost's gzip-compatible codec) of
// a manifest.json plus the artifacts it references.
package manifest

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/version"
)

// Artifact names one file a manifest references, with its declared
// size and an optional content hash for integrity checking.
type Artifact struct {
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
	Size uint64 `json:"size"`
}

// Manifest is the bundle's manifest.json, spec.md §6's delta manifest
// format.
type Manifest struct {
	Version           string     `json:"version"`
	Package           string     `json:"package"`
	AppVersion        string     `json:"app_version"`
	SignerID          string     `json:"signer_id,omitempty"`
	MinRuntimeVersion string     `json:"min_runtime_version"`
	Wasm              *Artifact  `json:"wasm,omitempty"`
	ABI               *Artifact  `json:"abi,omitempty"`
	Migrations        []Artifact `json:"migrations,omitempty"`
	Signature         []byte     `json:"signature,omitempty"`
}

// Validate enforces the manifest's required non-empty fields. package
// and app_version are load-bearing identifiers; everything else may be
// absent for a legacy/unsigned/no-migration bundle. Every violation is
// collected so a malformed manifest is reported in full, not one field
// at a time across repeated calls.
func (m Manifest) Validate() error {
	var c errs.Collector
	if m.Package == "" {
		c.Add(&errs.InvalidData{Reason: "manifest: package field is empty"})
	}
	if m.AppVersion == "" {
		c.Add(&errs.InvalidData{Reason: "manifest: app_version field is empty"})
	}
	return c.Err()
}

// CheckRuntime verifies min_runtime_version against runtime, the
// running node's own version, rejecting a bundle this build is too
// old to execute. An empty min_runtime_version (legacy bundle) always
// passes.
func (m Manifest) CheckRuntime(runtime version.Version) error {
	if m.MinRuntimeVersion == "" {
		return nil
	}
	required, err := version.Parse(m.MinRuntimeVersion)
	if err != nil {
		return &errs.InvalidData{Reason: "manifest: min_runtime_version is not a valid version: " + err.Error()}
	}
	if runtime.Before(required) {
		return &errs.InvalidData{Reason: "manifest: requires runtime >= " + required.String() + ", have " + runtime.String()}
	}
	return nil
}

// Bundle is an unpacked archive: its validated manifest plus every
// file's raw bytes, keyed by its tar path.
type Bundle struct {
	Manifest Manifest
	Files    map[string][]byte
}

// Extract unpacks a tar+gzip bundle archive, locates manifest.json,
// validates it, and returns every file's bytes alongside it.
func Extract(r io.Reader) (Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Bundle{}, &errs.InvalidData{Reason: "manifest: not a valid gzip stream: " + err.Error()}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	files := make(map[string][]byte)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Bundle{}, &errs.InvalidData{Reason: "manifest: malformed tar stream: " + err.Error()}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return Bundle{}, &errs.InvalidData{Reason: "manifest: failed reading " + hdr.Name + ": " + err.Error()}
		}
		files[hdr.Name] = body
	}

	raw, ok := files["manifest.json"]
	if !ok {
		return Bundle{}, &errs.InvalidData{Reason: "manifest: archive missing manifest.json"}
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Bundle{}, &errs.InvalidData{Reason: "manifest: manifest.json parse error: " + err.Error()}
	}
	if err := m.Validate(); err != nil {
		return Bundle{}, err
	}
	if err := m.CheckRuntime(version.Current()); err != nil {
		return Bundle{}, err
	}

	return Bundle{Manifest: m, Files: files}, nil
}

// Artifact looks up one of the manifest's referenced artifacts' bytes
// by its declared path, verifying the declared size matches.
func (b Bundle) Artifact(a Artifact) ([]byte, error) {
	body, ok := b.Files[a.Path]
	if !ok {
		return nil, &errs.InvalidData{Reason: "manifest: referenced artifact missing from archive: " + a.Path}
	}
	if uint64(len(body)) != a.Size {
		return nil, &errs.InvalidData{Reason: "manifest: artifact size mismatch for " + a.Path}
	}
	return body, nil
}

// Build packs a manifest plus its artifact bodies into a tar+gzip
// archive, the inverse of Extract. keyed by each artifact's declared
// path; manifest.json is always written first.
func Build(m Manifest, files map[string][]byte) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := writeTarFile(tw, "manifest.json", raw); err != nil {
		return nil, err
	}
	for path, body := range files {
		if err := writeTarFile(tw, path, body); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTarFile(tw *tar.Writer, name string, body []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body))}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(body)
	return err
}
