package observability

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	ServiceName  string
	OTelEndpoint string
	// EnablePprof mounts net/http/pprof under /debug/pprof/.
	EnablePprof bool
}

// TracingEnabled reports whether spans leave the process.
func (c Config) TracingEnabled() bool {
	return c.OTelEndpoint != ""
}
