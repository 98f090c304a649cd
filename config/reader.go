package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "NAVSIM_CONFIG"

// Read reads the JSON config at path over the defaults and validates it. ${VAR} references in
// the file are replaced from the environment first.
func Read(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}

	cfg, err := FromReader(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// FromReader reads a JSON config from r over the defaults and validates it.
func FromReader(r io.Reader) (*Config, error) {
	var attrs AttributeMap
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&attrs); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	return FromAttributes(attrs)
}
