package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// WriteCheckpoint fully overwrites the checkpoint file.
func WriteCheckpoint(path string, cp model.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: encode checkpoint")
	}
	return writeAtomic(path, data)
}

// LoadCheckpoint reads a checkpoint written by a previous run.
func LoadCheckpoint(path string) (model.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Checkpoint{}, eris.Wrapf(err, "pipeline: read checkpoint %s", path)
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.Checkpoint{}, eris.Wrap(err, "pipeline: parse checkpoint")
	}
	return cp, nil
}

// WriteCases fully overwrites the output file with the consolidated list.
// A crash mid-run therefore never leaves a half-written artifact.
func WriteCases(path string, cases []*model.ConsolidatedCase) error {
	if cases == nil {
		cases = []*model.ConsolidatedCase{}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: encode cases")
	}
	return writeAtomic(path, data)
}

// LoadCases reads the output file back, as resume does.
func LoadCases(path string) ([]*model.ConsolidatedCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read output %s", path)
	}
	var cases []*model.ConsolidatedCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse output")
	}
	return cases, nil
}

// writeAtomic replaces path via a temp file and rename so readers never
// observe a partial write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "pipeline: create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "pipeline: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "pipeline: close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "pipeline: chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "pipeline: rename %s", path)
	}
	return nil
}
