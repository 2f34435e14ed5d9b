package tasks

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/shared"
)

// Opts carries the collaborators shared by every component. Zero values select the defaults.
type Opts struct {
	Logger   *log.Logger
	Progress chan<- ProgressUpdate
	// Rand drives playlist sampling.
	Rand *rand.Rand
	// Now is the clock used when no album bounds the liked-track scan.
	Now func() time.Time
}

func (o Opts) withDefaults() Opts {
	if o.Logger == nil {
		o.Logger = shared.DiscardLogger()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
