package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/stage-sync/pkg/stages"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
)

func validOutput(format string) bool {
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return true
	}
	return false
}

func renderStages(w io.Writer, format string, list []stages.Stage) error {
	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(list); err != nil {
			return fmt.Errorf("failed to encode stages as JSON: %w", err)
		}
		return nil
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()

		if err := encoder.Encode(list); err != nil {
			return fmt.Errorf("failed to encode stages as YAML: %w", err)
		}
		return nil
	default:
		return renderStagesTable(w, list)
	}
}

func renderStagesTable(w io.Writer, list []stages.Stage) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No stages found")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "Tags")

	for _, stage := range list {
		_ = table.Append([]string{
			strconv.FormatInt(int64(stage.ID), 10),
			stage.Title,
			strings.Join(stage.Tags, ", "),
		})
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
