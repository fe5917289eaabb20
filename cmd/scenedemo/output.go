package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// drawReport is the output of the draw command.
type drawReport struct {
	Frames  int        `yaml:"frames"`
	Threads int        `yaml:"threads"`
	Stats   *statsView `yaml:"stats,omitempty"`
	Trace   []string   `yaml:"trace"`
}

type statsView struct {
	Draws         uint64   `yaml:"draws"`
	ItemsRecorded uint64   `yaml:"items_recorded"`
	ItemsSkipped  uint64   `yaml:"items_skipped"`
	Submitted     uint64   `yaml:"command_buffers_submitted"`
	WorkerClaims  []uint64 `yaml:"worker_claims,flow"`
}

// treeEntry is one occurrence printed by the tree command.
type treeEntry struct {
	Type        string      `yaml:"type"`
	Name        string      `yaml:"name,omitempty"`
	Translation [3]float32  `yaml:"translation,flow"`
	Lists       []string    `yaml:"lists,omitempty,flow"`
	Children    []treeEntry `yaml:"children,omitempty"`
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeDrawText(w io.Writer, r *drawReport) error {
	if _, err := fmt.Fprintf(w, "frames=%d threads=%d\n", r.Frames, r.Threads); err != nil {
		return err
	}
	if st := r.Stats; st != nil {
		if _, err := fmt.Fprintf(w, "draws=%d recorded=%d skipped=%d submitted=%d claims=%v\n",
			st.Draws, st.ItemsRecorded, st.ItemsSkipped, st.Submitted, st.WorkerClaims); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(r.Trace, "\n"))
	return err
}

func writeTreeText(w io.Writer, entries []treeEntry, depth int) error {
	for _, e := range entries {
		label := e.Type
		if e.Name != "" {
			label += " " + e.Name
		}
		t := e.Translation
		if _, err := fmt.Fprintf(w, "%s%s at (%g, %g, %g)", strings.Repeat("  ", depth), label, t[0], t[1], t[2]); err != nil {
			return err
		}
		if len(e.Lists) > 0 {
			if _, err := fmt.Fprintf(w, " in %s", strings.Join(e.Lists, ", ")); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeTreeText(w, e.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// cutDraw returns the label of a draw line of a flattened trace.
func cutDraw(line string) (string, bool) {
	return strings.CutPrefix(strings.TrimSpace(line), "draw ")
}
