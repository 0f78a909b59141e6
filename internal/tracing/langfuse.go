// Package tracing reports generations to Langfuse through eino's global
// callback handlers. Tracing is opt-in: it stays off until both Langfuse
// keys are configured.
package tracing

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

const (
	defaultHost = "http://localhost:3000"
	traceName   = "docchat"
)

// Options locates a Langfuse project.
type Options struct {
	Host      string
	PublicKey string
	SecretKey string
}

// OptionsFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY.
func OptionsFromEnv() Options {
	return Options{
		Host:      strings.TrimRight(os.Getenv("LANGFUSE_HOST"), "/"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

// Enabled reports whether both keys are present.
func (o Options) Enabled() bool {
	return o.PublicKey != "" && o.SecretKey != ""
}

// Install registers a Langfuse handler as an eino global callback and
// returns the func that flushes pending traces. It must run before any
// generator is built. When o is not Enabled nothing is registered and the
// returned flush is a no-op.
func Install(o Options) (flush func(), enabled bool, err error) {
	if !o.Enabled() {
		return func() {}, false, nil
	}
	host := o.Host
	if host == "" {
		host = defaultHost
	}
	if u, perr := url.Parse(host); perr != nil || u.Scheme == "" || u.Host == "" {
		return nil, false, fmt.Errorf("tracing: LANGFUSE_HOST %q is not an absolute URL", host)
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: o.PublicKey,
		SecretKey: o.SecretKey,
		Name:      traceName,
	})
	callbacks.AppendGlobalHandlers(handler)
	return flusher, true, nil
}
