package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path/filepath"
	"sync"
)

// exportJob is one per-table export session for the bulk-unload helper.
type exportJob struct {
	Schema string
	Table  string
	File   string
	Script string // db2 CLP statements, ';'-separated
}

// buildExportJobs derives one DEL export per table from the catalog,
// ordered by schema then table name.
func buildExportJobs(catalog *Catalog, outDir string, cfg UnloadConfig) []exportJob {
	var jobs []exportJob
	for _, schemaName := range sortedNames(catalog.Schemas) {
		schema := catalog.Schemas[schemaName]
		for _, tableName := range sortedNames(schema.Tables) {
			file := filepath.Join(outDir, fmt.Sprintf("%s.%s.del", schemaName, tableName))
			jobs = append(jobs, exportJob{
				Schema: schemaName,
				Table:  tableName,
				File:   file,
				Script: fmt.Sprintf(
					`CONNECT TO %s; EXPORT TO %s OF DEL SELECT * FROM "%s"."%s"; CONNECT RESET;`,
					cfg.Database, file, schemaName, tableName),
			})
		}
	}
	return jobs
}

// writeUnloadScript writes the export sessions as a shell script, for
// operators who prefer to run the unload by hand on the DB2 host.
func writeUnloadScript(w io.Writer, jobs []exportJob, cfg UnloadConfig) error {
	if _, err := fmt.Fprintf(w, "#!/bin/sh\n# one export session per table; failures do not stop the rest\n"); err != nil {
		return err
	}
	for _, job := range jobs {
		if _, err := fmt.Fprintf(w, "%s -tv '%s'\n", cfg.DB2Cmd, job.Script); err != nil {
			return err
		}
	}
	return nil
}

// runExportJobs fans the export sessions out over a bounded worker
// pool. Each session is an independent db2 CLP invocation; a failed
// table is reported and skipped, never propagated, and the pool is
// joined before returning. Returns the number of failed jobs.
func runExportJobs(ctx context.Context, jobs []exportJob, cfg UnloadConfig) int {
	workers := cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	queue := make(chan exportJob)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				cmd := exec.CommandContext(ctx, cfg.DB2Cmd, "-t", "-v", job.Script)
				out, err := cmd.CombinedOutput()
				if err != nil {
					log.Printf("  WARN: export %s.%s failed: %v\n%s", job.Schema, job.Table, err, out)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				log.Printf("  exported %s.%s to %s", job.Schema, job.Table, job.File)
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()
	return failed
}
