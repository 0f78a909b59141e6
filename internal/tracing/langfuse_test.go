package tracing

import "testing"

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "https://cloud.langfuse.com/")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf-test")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	o := OptionsFromEnv()
	if o.Host != "https://cloud.langfuse.com" {
		t.Errorf("Host = %q, want trailing slash trimmed", o.Host)
	}
	if o.Enabled() {
		t.Error("Enabled() = true with no secret key")
	}
}

func TestInstall(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantEnabled bool
		wantErr     bool
	}{
		{"no keys", Options{}, false, false},
		{"public key only", Options{PublicKey: "pk"}, false, false},
		{"bad host", Options{Host: "langfuse:3000", PublicKey: "pk", SecretKey: "sk"}, false, true},
		{"default host", Options{PublicKey: "pk", SecretKey: "sk"}, true, false},
		{"explicit host", Options{Host: "http://127.0.0.1:1", PublicKey: "pk", SecretKey: "sk"}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flush, enabled, err := Install(tc.opts)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Install err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if enabled != tc.wantEnabled {
				t.Errorf("enabled = %v, want %v", enabled, tc.wantEnabled)
			}
			if flush == nil {
				t.Fatal("flush must never be nil on success")
			}
			if !enabled {
				flush()
			}
		})
	}
}
