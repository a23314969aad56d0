package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/logging"
)

// Read reads a config from the given file, substituting ${VAR} references with environment
// variables first.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return decode(filePath, buf, logger)
}

// FromReader reads a config from the given reader and specifies where, if applicable, the
// file the reader originated from. Environment variables are substituted.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	buf, err := envsubst.Bytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to substitute environment variables")
	}
	return decode(originalPath, buf, logger)
}

func decode(originalPath string, buf []byte, logger logging.Logger) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	decoder := json.NewDecoder(bytes.NewReader(buf))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	logger.Debugw("read config", "path", originalPath, "signals", len(cfg.ReferencedSignals()))
	return &cfg, nil
}
