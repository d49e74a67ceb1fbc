package paperledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Version is stamped on provenance rows. Overridden at build time with
// -ldflags "-X github.com/tendant/paper-ledger/pkg/paperledger.Version=...".
var Version = "0.1.0"

const (
	maxPipelineNameLen = 255
	maxVersionLen      = 50
)

// ProvenanceInput describes the run a provenance row is written for.
type ProvenanceInput struct {
	PipelineName string
	Version      string
	Compute      string
	Personnel    string
	Comment      string
}

// ComputeContext fingerprints the execution context of a run.
func ComputeContext(hostname, username string) string {
	sum := sha256.Sum256([]byte(hostname + "_" + username))
	return hex.EncodeToString(sum[:])
}

// RunContext identifies the host and operator a run executes as.
type RunContext struct {
	Hostname string
	Username string
}

// DetectRunContext reads the host and operator from the environment, falling
// back to the OS hostname.
func DetectRunContext() RunContext {
	rc := RunContext{
		Hostname: os.Getenv("HOSTNAME"),
		Username: os.Getenv("USERNAME"),
	}
	if rc.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			rc.Hostname = h
		}
	}
	if rc.Username == "" {
		rc.Username = os.Getenv("USER")
	}
	return rc
}

// withDefaults fills unset fields of in from pipeline and rc.
func (in ProvenanceInput) withDefaults(pipeline string, rc RunContext) ProvenanceInput {
	if in.PipelineName == "" {
		in.PipelineName = pipeline
	}
	if in.Version == "" {
		in.Version = Version
	}
	if in.Compute == "" {
		in.Compute = ComputeContext(rc.Hostname, rc.Username)
	}
	if in.Personnel == "" {
		in.Personnel = rc.Hostname
	}
	return in
}

func (in ProvenanceInput) validate() error {
	name := strings.TrimSpace(in.PipelineName)
	if name == "" {
		return fmt.Errorf("%w: pipeline name is required", ErrInvalidProvenance)
	}
	if utf8.RuneCountInString(name) > maxPipelineNameLen {
		return fmt.Errorf("%w: pipeline name exceeds %d characters", ErrInvalidProvenance, maxPipelineNameLen)
	}
	if utf8.RuneCountInString(in.Version) > maxVersionLen {
		return fmt.Errorf("%w: version exceeds %d characters", ErrInvalidProvenance, maxVersionLen)
	}
	return nil
}

func (in ProvenanceInput) record() *Provenance {
	return &Provenance{
		PipelineName: strings.TrimSpace(in.PipelineName),
		Version:      in.Version,
		Compute:      in.Compute,
		Personnel:    in.Personnel,
		Comment:      in.Comment,
	}
}
