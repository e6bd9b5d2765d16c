// cmd/tools/catalog-check/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	apphttp "mergington-activities/internal/common/http"
	"mergington-activities/pkg/catalog"
)

var catalogPath string

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	diffCmd := flag.NewFlagSet("diff", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{validateCmd, addCmd, diffCmd} {
		fs.StringVar(&catalogPath, "path", "", "Path to catalog file (empty uses the built-in catalog)")
	}

	// Add command flags
	name := addCmd.String("name", "", "Activity name (e.g., Robotics Club)")
	description := addCmd.String("description", "", "Description")
	schedule := addCmd.String("schedule", "", "Schedule (e.g., Mondays, 4:00 PM - 5:30 PM)")
	maxParticipants := addCmd.Int("max", 0, "Maximum participants")

	// Diff command flags
	server := diffCmd.String("server", "http://localhost:8000", "Base URL of a running activity API")
	timeout := diffCmd.Duration("timeout", 5*time.Second, "Request timeout")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := catalog.LoadOrDefault(catalogPath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed (%d activities).\n", len(cat.Activities))
		for _, n := range cat.Names() {
			fmt.Printf("  %s\n", n)
		}

	case "add":
		addCmd.Parse(os.Args[2:])
		if catalogPath == "" || *name == "" || *description == "" || *schedule == "" || *maxParticipants < 1 {
			fmt.Println("Error: path, name, description, schedule and a positive max are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		err := addActivity(catalog.Entry{
			Name:            *name,
			Description:     *description,
			Schedule:        *schedule,
			MaxParticipants: *maxParticipants,
			Participants:    []string{},
		})
		if err != nil {
			fmt.Printf("Error adding activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added activity: %s\n", *name)

	case "diff":
		diffCmd.Parse(os.Args[2:])
		drift, err := diffServer(*server, *timeout)
		if err != nil {
			fmt.Printf("Error comparing with server: %v\n", err)
			os.Exit(1)
		}
		if len(drift) == 0 {
			fmt.Println("Server matches catalog.")
			return
		}
		for _, d := range drift {
			fmt.Println(d)
		}
		os.Exit(2)

	case "help":
		fallthrough
	default:
		help()
	}
}

func addActivity(entry catalog.Entry) error {
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = &catalog.Catalog{Version: "1.0.0", Activities: []catalog.Entry{}}
	}

	if slices.Contains(cat.Names(), entry.Name) {
		return fmt.Errorf("activity %q already exists", entry.Name)
	}

	cat.Activities = append(cat.Activities, entry)
	return catalog.Save(catalogPath, cat)
}

func diffServer(baseURL string, timeout time.Duration) ([]string, error) {
	cat, err := catalog.LoadOrDefault(catalogPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var live map[string]catalog.Entry
	status, err := apphttp.NewClient(baseURL, timeout).CallJSON(ctx, http.MethodGet, "/activities", nil, &live)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET /activities returned %d", status)
	}
	for n, e := range live {
		e.Name = n
		live[n] = e
	}
	return cat.Diff(live), nil
}

func help() {
	fmt.Println("Usage: catalog-check <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Validate a catalog file against the schema and roster rules")
	fmt.Println("  add       Append an activity to a catalog file")
	fmt.Println("  diff      Compare a running server's activities with the catalog")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'catalog-check <command> -h' for command-specific options.")
}
