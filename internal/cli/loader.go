package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/aircore/internal/compiler"
	"github.com/roach88/aircore/internal/ir"
)

// Error code constants for failures before a configuration exists.
// Problems inside a loaded configuration use the core error codes
// (TYPE_MISMATCH, CYCLIC_DEPENDENCY, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or schema failure
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Database error
)

// LoadError represents an error that occurred while loading a configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE line of the error, 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadConfig loads and compiles the CUE configuration package in dir.
// Every failure is a *LoadError.
func LoadConfig(dir string, catalog compiler.PortCatalog) (*ir.Config, int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}
	}
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	cfg, err := compiler.LoadDir(dir, catalog)
	if err != nil {
		return nil, len(cueFiles), convertCompileError(err)
	}
	return cfg, len(cueFiles), nil
}

// FindCUEFiles returns the .cue files of the package in dir. Subdirectories
// are separate packages and are not scanned.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Field != "" {
			msg = compileErr.Field + ": " + msg
		}
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	if e, ok := ir.AsError(err); ok {
		return &LoadError{Code: string(e.Code), Message: e.Error()}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadErrorOf extracts the LoadError from err, wrapping anything else.
func loadErrorOf(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
