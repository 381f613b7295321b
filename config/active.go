package config

import "sync/atomic"

// active is the process-wide default configuration. Init is the only writer.
var active atomic.Pointer[Configuration]

// Init resolves p against the process environment and makes the result the
// active configuration used by clients created without one. It is meant for
// single-tenant programs: concurrent calls are not coordinated and the last
// one wins. Callers that need isolation should keep their own
// *Configuration and pass it explicitly. On error the active configuration
// is left as it was.
func Init(p Params) (*Configuration, error) {
	c, err := Resolve(p, nil)
	if err != nil {
		return nil, err
	}
	active.Store(c)
	return c, nil
}

// Default returns the active configuration, or nil before Init.
func Default() *Configuration {
	return active.Load()
}

// ResetDefault forgets the active configuration.
func ResetDefault() {
	active.Store(nil)
}
