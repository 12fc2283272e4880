package ch

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo returns a ClientInfo describing this process and role
// so pipeline queries are identifiable in system.query_log
func BuildClientInfo(app, role, tag string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	if app == "" {
		app = "commitpipe"
	}
	if tag == "" {
		tag = vcsShortSHA()
	}

	type kv = struct{ Name, Version string }
	products := []kv{
		{Name: strings.TrimSpace(app), Version: strings.TrimSpace(tag)},
		{Name: "go", Version: runtime.Version()},
		{Name: "host", Version: strings.TrimSpace(host)},
	}
	if r := strings.TrimSpace(role); r != "" {
		products = append(products, kv{Name: "role", Version: r})
	}
	return clickhouse.ClientInfo{Products: products}
}

func vcsShortSHA() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}
