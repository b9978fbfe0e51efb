package feeders

import (
	"errors"
)

// Env feeder errors
var (
	ErrEnvInvalidStructure = errors.New("env: expected pointer to struct")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
	ErrEnvConversion       = errors.New("env: type conversion error")
)

// File feeder errors
var (
	ErrFileRead          = errors.New("failed to read config file")
	ErrYamlDecode        = errors.New("failed to decode yaml")
	ErrTomlDecode        = errors.New("failed to decode toml")
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)
