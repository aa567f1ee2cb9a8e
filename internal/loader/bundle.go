package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"

	"dronenav/internal/model"
)

// ReadBundle decodes a YAML scenario document. Unknown keys are rejected.
func ReadBundle(r io.Reader) (model.Scenario, error) {
	var s model.Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return s, fmt.Errorf("%w: empty bundle", ErrMalformedRow)
		}
		return s, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return s, nil
}

func WriteBundle(w io.Writer, s model.Scenario) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func LoadBundle(path string) (model.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Scenario{}, err
	}
	defer f.Close()
	s, err := ReadBundle(f)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
