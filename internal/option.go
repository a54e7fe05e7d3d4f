package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*options)

type options struct {
	config    *Config
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogOutput redirects log output. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

func newOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		return nil, errConfigRequired
	}
	if err := setupLogging(o.config.App, o.logOutput); err != nil {
		return nil, err
	}
	return o, nil
}
