package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/scenegraph/scene"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the occurrence tree with world translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDemo(globalFlags.width, globalFlags.height, globalFlags.objects)
		if err != nil {
			return err
		}
		defer d.destroy()
		if err := d.scene.Update(0); err != nil {
			return err
		}

		entries := occurrenceTree(d.scene.Root().Children())
		if globalFlags.format == "yaml" {
			return writeYAML(cmd.OutOrStdout(), entries)
		}
		return writeTreeText(cmd.OutOrStdout(), entries, 0)
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func occurrenceTree(occs []*scene.TreeNode) []treeEntry {
	entries := make([]treeEntry, 0, len(occs))
	for _, occ := range occs {
		n := occ.Node()
		e := treeEntry{
			Type:        n.Type().String(),
			Translation: occ.Transform().Col(3).Vec3(),
			Children:    occurrenceTree(occ.Children()),
		}
		if name, ok := n.UserData().(string); ok {
			e.Name = name
		}
		for _, ie := range occ.Entries() {
			if ie.List != nil && ie.ID != scene.NoEntry {
				e.Lists = append(e.Lists, ie.List.Name())
			}
		}
		entries = append(entries, e)
	}
	return entries
}
