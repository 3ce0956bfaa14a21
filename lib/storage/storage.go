// Package storage persists the pipeline's JSON documents either to the
// local filesystem or to an object storage bucket, selected once at
// startup. Writes are whole-document overwrites; a checkpoint is exactly
// one Save call.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotExist is returned by Load when no document has been saved yet.
// Callers treat it (and decode failures) as "no prior data".
var ErrNotExist = errors.New("storage: document does not exist")

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeObject Mode = "object"
)

// Kind identifies a logical document; where it lives is resolved through
// the Locations table injected from configuration.
type Kind int

const (
	KindDetails Kind = iota
	KindPrices
	KindIcons
)

func (k Kind) String() string {
	switch k {
	case KindDetails:
		return "details"
	case KindPrices:
		return "prices"
	case KindIcons:
		return "icons"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Location struct {
	Filename string
	Bucket   string
}

type Locations map[Kind]Location

type BucketConfig struct {
	Details string `json:"details"`
	Prices  string `json:"prices"`
	Icons   string `json:"icons"`
}

type Config struct {
	Mode    Mode         `json:"mode"`
	DataDir string       `json:"data_dir"`
	Object  ObjectConfig `json:"object"`
	Buckets BucketConfig `json:"buckets"`
}

// Resolve builds the kind lookup table for one run. The price document is
// suffixed with the run's start time so historical snapshots accumulate
// instead of overwriting each other; the details document is a single
// rolling file.
func Resolve(config Config, created time.Time) Locations {
	stamp := created.UTC().Format("2006-01-02T15:04:05")
	return Locations{
		KindDetails: {Filename: "details.json", Bucket: config.Buckets.Details},
		KindPrices:  {Filename: fmt.Sprintf("prices_%s.json", stamp), Bucket: config.Buckets.Prices},
		KindIcons:   {Bucket: config.Buckets.Icons},
	}
}

type Store interface {
	// Save overwrites the document for the given kind.
	Save(ctx context.Context, kind Kind, v any) error
	// Load decodes the document for the given kind into out.
	Load(ctx context.Context, kind Kind, out any) error
	// PutBytes writes a raw blob under the kind's location, keyed by name.
	// Used by the icon side channel.
	PutBytes(ctx context.Context, kind Kind, name string, data []byte, contentType string) error
}

// FromConfig picks the backend once, keyed on the configured mode.
func FromConfig(config Config, locations Locations) (Store, error) {
	switch config.Mode {
	case ModeLocal, "":
		return NewLocal(config.DataDir, locations), nil
	case ModeObject:
		return NewObject(config.Object, locations)
	}
	return nil, fmt.Errorf("storage: unknown mode %q", config.Mode)
}
