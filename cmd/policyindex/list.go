package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed document titles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		titles, err := a.store.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}
		if len(titles) == 0 {
			cmd.Println("No documents indexed.")
			return nil
		}
		for _, title := range titles {
			cmd.Println(title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
