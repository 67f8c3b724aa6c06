package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildExportJobs(t *testing.T) {
	catalog := catalogWithTables("APP", "EMP", "DEPT")
	catalog.SchemaByName("AUX").Tables["LOG"] = &Table{Name: "LOG"}

	jobs := buildExportJobs(catalog, "/tmp/out", UnloadConfig{Database: "SAMPLE", DB2Cmd: "db2"})
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}

	// Sorted by schema then table, filenames derived from both.
	wantOrder := []string{"APP.DEPT", "APP.EMP", "AUX.LOG"}
	for i, want := range wantOrder {
		got := jobs[i].Schema + "." + jobs[i].Table
		if got != want {
			t.Errorf("job %d = %s, want %s", i, got, want)
		}
	}
	if jobs[0].File != "/tmp/out/APP.DEPT.del" {
		t.Errorf("file = %q", jobs[0].File)
	}
	if !strings.Contains(jobs[0].Script, "CONNECT TO SAMPLE;") ||
		!strings.Contains(jobs[0].Script, `EXPORT TO /tmp/out/APP.DEPT.del OF DEL SELECT * FROM "APP"."DEPT";`) ||
		!strings.Contains(jobs[0].Script, "CONNECT RESET;") {
		t.Errorf("script = %q", jobs[0].Script)
	}
}

func TestWriteUnloadScript(t *testing.T) {
	catalog := catalogWithTables("APP", "EMP")
	cfg := UnloadConfig{Database: "SAMPLE", DB2Cmd: "db2"}
	jobs := buildExportJobs(catalog, "out", cfg)

	var buf bytes.Buffer
	if err := writeUnloadScript(&buf, jobs, cfg); err != nil {
		t.Fatalf("writeUnloadScript: %v", err)
	}
	script := buf.String()
	if !strings.HasPrefix(script, "#!/bin/sh\n") {
		t.Errorf("missing shebang:\n%s", script)
	}
	if !strings.Contains(script, "db2 -tv 'CONNECT TO SAMPLE;") {
		t.Errorf("missing export invocation:\n%s", script)
	}
}
