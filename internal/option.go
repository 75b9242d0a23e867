package internal

import (
	"io"

	"github.com/starford/tablero/internal/treeview"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	out    io.Writer
	tree   treeview.Options
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where PrintTree writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithTreeOptions sets what PrintTree includes.
func WithTreeOptions(o treeview.Options) Option {
	return func(a *application) {
		a.tree = o
	}
}
