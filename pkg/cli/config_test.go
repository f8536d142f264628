package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"eyJhbGciOiJIUzI1", "eyJh********UzI1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := MaskToken(tt.key)
			if got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "voxbridge", "config.yaml")

	cfg, err := LoadConfigWithPath("voxbridge", configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	if cfg.AppName != "voxbridge" {
		t.Errorf("AppName = %q, want %q", cfg.AppName, "voxbridge")
	}
	if cfg.Contexts == nil {
		t.Error("Contexts should be initialized")
	}
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file should be created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfigWithPath("voxbridge", configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	ctx := &Context{
		BaseURL:      "http://localhost:3000",
		Token:        "tok",
		OrgID:        "org-1",
		FrontendPort: "3000",
		BackendPort:  "3001",
		Timeout:      15,
	}
	if err := ctx.Set("s3.region", "eu-west-1"); err != nil {
		t.Fatal(err)
	}
	ctx.SetExtra("note", "dev")
	if err := cfg.AddContext("dev", ctx); err != nil {
		t.Fatalf("AddContext error: %v", err)
	}
	if cfg.CurrentContext != "dev" {
		t.Errorf("CurrentContext = %q, want first context to become current", cfg.CurrentContext)
	}

	loaded, err := LoadConfigWithPath("voxbridge", configPath)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	got, err := loaded.GetCurrentContext()
	if err != nil {
		t.Fatalf("GetCurrentContext error: %v", err)
	}
	if got.Name != "dev" || got.BaseURL != ctx.BaseURL || got.Token != "tok" || got.OrgID != "org-1" {
		t.Errorf("context = %+v", got)
	}
	if got.BackendPort != "3001" || got.EstablishTimeout() != 15*time.Second {
		t.Errorf("ports/timeout = %q, %v", got.BackendPort, got.EstablishTimeout())
	}
	if got.S3 == nil || got.S3.Region != "eu-west-1" {
		t.Errorf("S3 = %+v", got.S3)
	}
	if got.GetExtra("note") != "dev" {
		t.Errorf("Extra[note] = %q", got.GetExtra("note"))
	}
}

func TestConfig_DeleteContext(t *testing.T) {
	cfg, err := LoadConfigWithPath("voxbridge", filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	cfg.AddContext("ctx1", &Context{Token: "key1"})
	cfg.AddContext("ctx2", &Context{Token: "key2"})
	cfg.UseContext("ctx1")

	if err := cfg.DeleteContext("ctx2"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if _, ok := cfg.Contexts["ctx2"]; ok {
		t.Error("Context should be deleted")
	}

	if err := cfg.DeleteContext("ctx1"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext should be cleared, got %q", cfg.CurrentContext)
	}

	if err := cfg.DeleteContext("nonexistent"); err == nil {
		t.Error("DeleteContext(nonexistent) should fail")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	cfg, err := LoadConfigWithPath("voxbridge", filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if _, err := cfg.ResolveContext(""); err == nil {
		t.Error("ResolveContext with no current context should fail")
	}

	cfg.AddContext("b", &Context{})
	cfg.AddContext("a", &Context{})

	ctx, err := cfg.ResolveContext("a")
	if err != nil || ctx.Name != "a" {
		t.Errorf("ResolveContext(a) = %v, %v", ctx, err)
	}
	ctx, err = cfg.ResolveContext("")
	if err != nil || ctx.Name != "b" {
		t.Errorf("ResolveContext(\"\") = %v, %v; want current context b", ctx, err)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) should fail")
	}

	if got := strings.Join(cfg.ListContexts(), ","); got != "a,b" {
		t.Errorf("ListContexts() = %s, want a,b", got)
	}
}

func TestContext_Set(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(*Context) bool
		wantErr    bool
	}{
		{"base_url", "https://api.example.com", func(c *Context) bool { return c.BaseURL == "https://api.example.com" }, false},
		{"token", "t", func(c *Context) bool { return c.Token == "t" }, false},
		{"org_id", "o", func(c *Context) bool { return c.OrgID == "o" }, false},
		{"timeout", "20", func(c *Context) bool { return c.Timeout == 20 }, false},
		{"max_retries", "5", func(c *Context) bool { return c.MaxRetries == 5 }, false},
		{"timeout", "-1", nil, true},
		{"timeout", "soon", nil, true},
		{"storage_uri", "s3://bucket/calls", func(c *Context) bool { return c.StorageURI == "s3://bucket/calls" }, false},
		{"s3.path_style", "true", func(c *Context) bool { return c.S3 != nil && c.S3.PathStyle }, false},
		{"s3.endpoint", "http://minio:9000", func(c *Context) bool { return c.S3.Endpoint == "http://minio:9000" }, false},
		{"s3.bogus", "x", nil, true},
		{"voice", "calm", func(c *Context) bool { return c.GetExtra("voice") == "calm" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			ctx := &Context{}
			err := ctx.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(ctx) {
				t.Errorf("Set(%q, %q) left context %+v", tt.key, tt.value, ctx)
			}
		})
	}
}

func TestContext_GetExtra_NilMap(t *testing.T) {
	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("key"); got != "" {
		t.Errorf("GetExtra on nil map = %q, want empty string", got)
	}
}
