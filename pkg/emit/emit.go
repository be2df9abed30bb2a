// Package emit serializes the synthesized documents and writes them to the
// playground's base directory.
package emit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/manifest"
)

// Output file names inside the target directory.
const (
	ManifestFile = "Cargo.toml"
	InfoFile     = "crate-information.json"
)

// Disclaimer is prepended to the generated manifest.
const Disclaimer = `# This file is automatically @generated by the top-crates script.
# Do not edit it manually. Any pull requests changing this file will likely be closed.
# See https://github.com/rust-lang/rust-playground/blob/main/CRATE_POLICY.md for details.
#
`

// Result lists the files written by [Emit].
type Result struct {
	ManifestPath string
	InfoPath     string
}

// Paths returns the written paths in write order.
func (r Result) Paths() []string {
	return []string{r.ManifestPath, r.InfoPath}
}

// Render serializes both documents after checking that they agree.
func Render(doc *manifest.Document, infos []manifest.CrateInfo) (manifestData, infoData []byte, err error) {
	if err := manifest.Check(doc, infos); err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(Disclaimer)
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", ManifestFile)
	}

	if infos == nil {
		infos = []manifest.CrateInfo{}
	}
	infoData, err = json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", InfoFile)
	}
	return buf.Bytes(), append(infoData, '\n'), nil
}

// Emit renders both documents and writes them into dir, creating it if
// needed. Both files are staged next to their targets and renamed into place
// only once both have been written, so a failed run leaves the previous
// output untouched.
func Emit(doc *manifest.Document, infos []manifest.CrateInfo, dir string) (Result, error) {
	manifestData, infoData, err := Render(doc, infos)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeIO, err, "create output directory %s", dir)
	}

	res := Result{
		ManifestPath: filepath.Join(dir, ManifestFile),
		InfoPath:     filepath.Join(dir, InfoFile),
	}
	files := []staged{
		{target: res.ManifestPath, data: manifestData},
		{target: res.InfoPath, data: infoData},
	}

	defer func() {
		for _, f := range files {
			if f.temp != "" {
				os.Remove(f.temp)
			}
		}
	}()

	for i := range files {
		if err := files[i].write(dir); err != nil {
			return Result{}, err
		}
	}
	for i := range files {
		if err := os.Rename(files[i].temp, files[i].target); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeIO, err, "write %s", files[i].target)
		}
		files[i].temp = ""
	}
	return res, nil
}

type staged struct {
	target string
	temp   string
	data   []byte
}

func (s *staged) write(dir string) error {
	f, err := os.CreateTemp(dir, "."+filepath.Base(s.target)+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", s.target)
	}
	s.temp = f.Name()

	if _, err := f.Write(s.data); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", s.target)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", s.target)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", s.target)
	}
	return nil
}
